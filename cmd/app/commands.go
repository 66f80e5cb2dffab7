package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/starford/galaxytab/internal"
	"github.com/starford/galaxytab/internal/dashboard"
	"github.com/starford/galaxytab/internal/mcpserver"
	"github.com/starford/galaxytab/internal/models"
	"github.com/starford/galaxytab/internal/settings"
)

// withComponents opens the stores for a one-shot command. Logs go to stderr
// so stdout stays machine readable.
func withComponents(ctx context.Context, cmd *cli.Command, fn func(*internal.Components) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg.App.LogLevel, os.Stderr)
	comps, err := internal.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer comps.Close(ctx)
	return fn(comps)
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Inspect or change the stored settings",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the settings, or one section",
				ArgsUsage: "[section]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withComponents(ctx, cmd, func(c *internal.Components) error {
						snap := c.Settings.Snapshot()
						if name := cmd.Args().First(); name != "" {
							sec, ok := snap[name]
							if !ok {
								return fmt.Errorf("unknown section %q", name)
							}
							return printJSON(os.Stdout, sec)
						}
						return printJSON(os.Stdout, snap)
					})
				},
			},
			{
				Name:      "set",
				Usage:     "Update fields of one section",
				ArgsUsage: "<section> key=value...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args := cmd.Args().Slice()
					if len(args) < 2 {
						return fmt.Errorf("usage: settings set <section> key=value...")
					}
					patch, err := parseAssignments(args[1:])
					if err != nil {
						return err
					}
					return withComponents(ctx, cmd, func(c *internal.Components) error {
						view, err := c.Service.UpdateSection(ctx, args[0], patch, "")
						if err != nil {
							return err
						}
						fmt.Printf("%s %s\n", color.New(color.FgGreen).Sprint("updated"), args[0])
						return printJSON(os.Stdout, view.Settings[args[0]])
					})
				},
			},
			{
				Name:  "reset",
				Usage: "Restore the default settings",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withComponents(ctx, cmd, func(c *internal.Components) error {
						c.Service.ResetSettings(ctx)
						fmt.Println(color.New(color.FgYellow).Sprint("settings reset to defaults"))
						return nil
					})
				},
			},
			{
				Name:  "export",
				Usage: "Write the settings as indented JSON",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withComponents(ctx, cmd, func(c *internal.Components) error {
						data, err := c.Service.ExportSettings(ctx)
						if err != nil {
							return err
						}
						_, err = os.Stdout.Write(append(data, '\n'))
						return err
					})
				},
			},
		},
	}
}

func linksCommand() *cli.Command {
	return &cli.Command{
		Name:  "links",
		Usage: "Manage quick links",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List links",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "sort",
						Usage: "custom, alphabetical or most-used",
						Value: settings.SortCustom,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withComponents(ctx, cmd, func(c *internal.Components) error {
						items, err := dashboard.SortLinks(c.Service.AllLinks(ctx), cmd.String("sort"))
						if err != nil {
							return err
						}
						printLinks(os.Stdout, items)
						return nil
					})
				},
			},
			{
				Name:      "add",
				Usage:     "Add a link",
				ArgsUsage: "<title> <url>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "icon", Usage: "Icon text, usually an emoji"},
					&cli.StringFlag{Name: "category", Usage: "Category tag"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args := cmd.Args().Slice()
					if len(args) != 2 {
						return fmt.Errorf("usage: links add <title> <url>")
					}
					return withComponents(ctx, cmd, func(c *internal.Components) error {
						link, err := c.Service.AddLink(ctx, models.LinkDraft{
							Title:    args[0],
							URL:      args[1],
							Icon:     cmd.String("icon"),
							Category: cmd.String("category"),
						})
						if err != nil {
							return err
						}
						fmt.Printf("%s %s %s\n", color.New(color.FgGreen).Sprint("added"), link.ID, link.URL)
						return nil
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Remove a link",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.Args().First()
					if id == "" {
						return fmt.Errorf("usage: links rm <id>")
					}
					return withComponents(ctx, cmd, func(c *internal.Components) error {
						if _, err := c.Service.GetLink(ctx, id); err != nil {
							fmt.Printf("%s %s\n", color.New(color.FgRed).Sprint("MISSING"), id)
							return nil
						}
						c.Service.RemoveLink(ctx, id)
						fmt.Printf("%s %s\n", color.New(color.FgYellow).Sprint("removed"), id)
						return nil
					})
				},
			},
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the MCP tools over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(c *internal.Components) error {
				watchCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				go func() {
					_ = c.KV.Run(watchCtx)
				}()
				return mcpserver.New(c.Service, version).ServeStdio()
			})
		},
	}
}

// parseAssignments turns key=value pairs into a section patch. Values that
// parse as JSON keep their type, anything else is a string.
func parseAssignments(args []string) (settings.Section, error) {
	patch := settings.Section{}
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		patch[key] = v
	}
	return patch, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printLinks(w io.Writer, items []models.Link) {
	if len(items) == 0 {
		fmt.Fprintln(w, color.New(color.FgYellow).Sprint("(no links)"))
		return
	}
	for _, l := range items {
		icon := l.Icon
		if icon == "" {
			icon = " "
		}
		fmt.Fprintf(w, "%s %-24s %s  %s\n",
			icon,
			l.Title,
			color.New(color.FgCyan).Sprint(l.URL),
			color.New(color.FgHiBlack).Sprintf("[%s] %d clicks", l.ID, l.ClickCount))
	}
}
