package mcpserver

// SettingsGuide describes the settings sections and link fields so that LLM
// consumers can form valid update_settings and add_link calls.
const SettingsGuide = `# galaxytab Settings Guide

Settings are one JSON object of named sections. update_settings merges the
given keys into a single section: keys you name are replaced, keys you leave
out keep their value, and an object value replaces the whole existing object.
Naming a section that does not exist creates it.

## Sections and defaults

| section    | key                | default             | values                                  |
|------------|--------------------|---------------------|-----------------------------------------|
| background | type               | particles           | particles, waves, galaxy, color         |
| background | color              | #202225             | CSS color                               |
| background | animated           | true                | boolean                                 |
| search     | engine             | google              | google, bing, duckduckgo, yahoo, ecosia, custom |
| search     | customSearchUrl    | ""                  | URL template, %s marks the query        |
| search     | openInNewTab       | true                | boolean                                 |
| search     | searchHistory      | []                  | newest first, at most 10 (managed)      |
| appearance | theme              | dark                | dark, light, auto                       |
| appearance | accentColor        | #5865F2             | CSS color                               |
| appearance | fontFamily         | Inter, sans-serif   | CSS font-family                         |
| appearance | borderRadius       | 12px                | CSS length                              |
| appearance | clock24Hour        | false               | boolean                                 |
| appearance | showDate           | true                | boolean                                 |
| appearance | showWeather        | true                | boolean                                 |
| appearance | weatherUnit        | celsius             | celsius, fahrenheit                     |
| layout     | columns            | auto                | auto or a column count such as "4"      |
| layout     | sortBy             | custom              | custom, alphabetical, most-used         |
| gestures   | enabled            | true                | boolean                                 |
| gestures   | doubleClickAction  | open-settings       | action id, "" for none                  |
| gestures   | swipeLeftAction    | next-page           | action id, "" for none                  |
| gestures   | swipeRightAction   | previous-page       | action id, "" for none                  |
| advanced   | customCSS          | ""                  | stylesheet text                         |
| advanced   | customJS           | ""                  | script text, runs only if enabled by the operator |
| advanced   | clearHistoryOnExit | false               | boolean                                 |

Known action ids: open-settings, new-link, refresh, next-page, previous-page.

## Links

A link has id (assigned), title, url, icon (usually one emoji) and category.
Addresses without a scheme are saved with https:// in front.
`
