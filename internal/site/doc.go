// Package site renders the documentation site and publishes it.
//
// Every file of the content tree goes through one page template. HTML
// fragments contribute their <title> and <body>; Markdown is converted to
// HTML; anything else is copied verbatim. Pages whose base name is "index"
// use the three-column layout, all others the two-column layout. The
// rendered tree is staged and then replaces the served directory as a whole.
package site
