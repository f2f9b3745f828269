package convert

import (
	"fmt"
	"regexp"
	"strings"
)

const maxNameLen = 120

var (
	unsafeNameChars = regexp.MustCompile(`[\\/*?"<>|:]`)
	kbMetadataKeys  = []string{"ID", "CATEGORY", "FULL_PATH", "LAST_UPDATED", "SOURCE"}
)

// renderRow renders one row with the given parser. The second result is false
// when the row is skipped.
func renderRow(parser Parser, idField string, r row) (Document, bool) {
	switch parser {
	case ParserMule:
		id := r.get(idField)
		if id == "" {
			return Document{}, false
		}
		return renderGeneric(id, r), true
	case ParserKB:
		return renderKB(r)
	case ParserGeneric:
		return renderGeneric(identifier(r.get(idField), r), r), true
	default:
		return renderGeneric(identifier("", r), r), true
	}
}

func identifier(preferred string, r row) string {
	if preferred != "" {
		return preferred
	}
	if v := r.firstValue(); v != "" {
		return v
	}
	return "row"
}

func renderGeneric(id string, r row) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", id)
	r.each(func(key, value string) {
		key = strings.TrimSpace(key)
		if key == "" {
			return
		}
		fmt.Fprintf(&b, "**%s:** %s\n\n", key, strings.TrimSpace(value))
	})
	return Document{Name: SafeFilename(id), Content: []byte(b.String())}
}

func renderKB(r row) (Document, bool) {
	title := r.lookup("TITLE", "Title")
	if title == "" {
		return Document{}, false
	}
	body := cleanHTML(extractHTML(r.lookup("CONTENTS", "Content")))

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString("## Metadata\n")
	for _, key := range kbMetadataKeys {
		fmt.Fprintf(&b, "- **%s**: %s\n", key, r.lookup(key))
	}
	b.WriteString("\n---\n\n")
	b.WriteString(body)
	if body != "" {
		b.WriteString("\n")
	}
	return Document{Name: SafeFilename(title), Content: []byte(b.String())}, true
}

// SafeFilename replaces characters OneDrive and most file systems reject,
// truncates to 120 characters and appends ".md" unless already present.
func SafeFilename(name string) string {
	safe := unsafeNameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if safe == "" {
		safe = "untitled"
	}
	hasExt := strings.HasSuffix(strings.ToLower(safe), ".md")

	if runes := []rune(safe); len(runes) > maxNameLen {
		safe = string(runes[:maxNameLen])
	}
	if hasExt && strings.HasSuffix(strings.ToLower(safe), ".md") {
		return safe
	}
	return safe + ".md"
}

// dedupeNames suffixes repeated names with " (2)", " (3)", ... in row order
// so no document replaces another in the target folder.
func dedupeNames(docs []Document) []Document {
	used := make(map[string]bool, len(docs))
	for i := range docs {
		name := docs[i].Name
		key := strings.ToLower(name)
		if !used[key] {
			used[key] = true
			continue
		}
		stem := strings.TrimSuffix(name, ".md")
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s (%d).md", stem, n)
			if !used[strings.ToLower(candidate)] {
				docs[i].Name = candidate
				used[strings.ToLower(candidate)] = true
				break
			}
		}
	}
	return docs
}

// bundle joins documents under one heading named after the input file.
func bundle(base string, docs []Document) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", base)
	if len(docs) == 0 {
		b.WriteString("\n_No rows._\n")
	}
	for _, d := range docs {
		b.WriteString("\n---\n\n")
		b.WriteString(strings.TrimRight(string(d.Content), "\n"))
		b.WriteString("\n")
	}
	return Document{Name: SafeFilename(base), Content: []byte(b.String())}
}
