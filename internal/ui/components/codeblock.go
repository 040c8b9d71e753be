// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// CODE BLOCK HIGHLIGHTING
// =============================================================================
//
// Used for fenced code blocks when full markdown rendering is disabled
// in the config; glamour handles highlighting otherwise.

// HighlightCode applies terminal syntax highlighting to a code snippet.
// Falls back to the plain source on any failure.
func HighlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// HighlightFenced highlights every ``` fenced block in text, leaving
// the surrounding prose untouched. Unclosed fences are passed through
// as-is.
func HighlightFenced(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	var out strings.Builder
	rest := text
	for {
		start := strings.Index(rest, "```")
		if start < 0 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])

		body := rest[start+3:]
		nl := strings.IndexByte(body, '\n')
		if nl < 0 {
			out.WriteString(rest[start:])
			break
		}
		language := strings.TrimSpace(body[:nl])
		body = body[nl+1:]

		end := strings.Index(body, "```")
		if end < 0 {
			out.WriteString(rest[start:])
			break
		}
		code := strings.TrimRight(body[:end], "\n")

		out.WriteString(HighlightCode(code, language))
		out.WriteString("\n")
		rest = body[end+3:]
	}
	return out.String()
}
