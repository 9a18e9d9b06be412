// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package cluster

import (
	"strings"

	"golang.org/x/net/html"
)

// ParseDescription extracts the attribute table that KML exports embed in
// the Description property:
//
//	<table><tr><th>CASE_SIZE</th><td>4</td></tr>...</table>
//
// Each header cell names the value of the data cell that follows it. Cells
// without a header are ignored. Keys are returned as written.
func ParseDescription(desc string) map[string]string {
	out := make(map[string]string)
	if !strings.Contains(desc, "<") {
		return out
	}

	z := html.NewTokenizer(strings.NewReader(desc))

	var (
		key     string
		inCell  string // "th", "td" or ""
		text    strings.Builder
		haveKey bool
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way we are done.
			return out

		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "th", "td":
				inCell = string(name)
				text.Reset()
			case "tr":
				haveKey = false
			}

		case html.TextToken:
			if inCell != "" {
				text.Write(z.Text())
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "th":
				key = strings.TrimSpace(text.String())
				haveKey = key != ""
				inCell = ""
			case "td":
				if haveKey {
					out[key] = strings.TrimSpace(text.String())
					haveKey = false
				}
				inCell = ""
			}
		}
	}
}
