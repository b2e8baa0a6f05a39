package mcpserver

// NoteFormatURI is the resource URI of the note format contract.
const NoteFormatURI = "noteku://note-format"

// NoteFormatContract describes the markup notes are stored in, for LLM
// consumers creating or updating notes.
const NoteFormatContract = `# Noteku Note Format Contract

A note is a JSON record with five string fields:

| field      | meaning                                                        |
|------------|----------------------------------------------------------------|
| id         | opaque, assigned by the server on create, never changes        |
| title      | display title; an empty title is saved as "Untitled"           |
| content    | HTML-like markup (see below)                                   |
| category   | one of Work, Ideas, Personal, To-Do                            |
| date       | last-saved time, formatted for display, set by the server      |

"All" is a filter for search_notes only. It is never stored on a note.

## Rich-text content (Work, Ideas, Personal)

Use simple inline and block tags: ` + "`<p>`, `<br>`, `<b>`, `<i>`, `<u>`, `<ul>`, `<ol>`, `<li>`, `<h1>`-`<h3>`" + `.
Escape literal ` + "`<`, `>` and `&` as `&lt;`, `&gt;` and `&amp;`" + `.
Images are ` + "`<img src=\"data:image/png;base64,...\" />`" + ` and are appended with the
attach_image tool rather than written by hand.

## Checklist content (To-Do)

Do not write checklist markup directly. Call set_checklist with a list of
` + "`{\"text\": \"...\", \"checked\": true|false}`" + ` items; the server encodes them as

` + "```" + `html
<ul><li>☐ buy milk</li><li style="text-decoration: line-through">☑ call mum</li></ul>
` + "```" + `

get_checklist decodes any list markup back into items. An item counts as
checked when it is struck through (style line-through, <s>, <strike>, <del>)
or its text starts with ☑, ✓, ✔ or [x]. An empty checklist is stored as an
empty string.

## Concurrency

read_note returns a revision. Pass it to update_note or set_checklist to make
the write fail instead of overwriting a change made in the meantime.
`
