package override

import (
	"strings"

	"github.com/Youdahe123/fill.ai-hop-hacks/internal/schema"
)

// Merge layers a record over extracted data. For any field the record
// covers, the record wins. Fields the record defines that the extraction
// never found are appended after the extracted ones, so curated additions
// keep a stable spot at the end of the interview.
//
// Merge never mutates its inputs. A nil record returns clones unchanged.
func Merge(extracted schema.FieldSchema, positions schema.FieldPositions, rec *Record) (schema.FieldSchema, schema.FieldPositions, map[string]string) {
	merged := extracted.Clone()
	mergedPos := positions.Clone()
	if mergedPos == nil {
		mergedPos = make(schema.FieldPositions)
	}
	if rec == nil {
		return merged, mergedPos, nil
	}

	if rec.Schema != nil {
		if rec.Schema.Title != "" {
			merged.Title = rec.Schema.Title
		}
		seen := make(map[string]int, len(merged.Fields))
		for i, f := range merged.Fields {
			seen[f.ID] = i
		}
		for _, f := range rec.Schema.Fields {
			if i, ok := seen[f.ID]; ok {
				merged.Fields[i] = f
			} else {
				merged.Fields = append(merged.Fields, f)
			}
		}
	}

	for id, pos := range rec.Positions {
		pos.FieldID = id
		mergedPos[id] = pos
	}

	values := matchValues(merged, rec.Values)
	return merged, mergedPos, values
}

// matchValues maps curated values onto schema field ids. Keys are tried as
// exact ids first, then against normalized labels, then as substrings in
// either direction. Values that match nothing are dropped.
func matchValues(s schema.FieldSchema, raw map[string]string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	values := make(map[string]string)
	for key, val := range raw {
		if id, ok := matchField(s, key); ok {
			values[id] = val
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func matchField(s schema.FieldSchema, key string) (string, bool) {
	if _, ok := s.Field(key); ok {
		return key, true
	}
	norm := normalizeKey(key)
	for _, f := range s.Fields {
		if normalizeKey(f.Label) == norm {
			return f.ID, true
		}
	}
	for _, f := range s.Fields {
		fn := normalizeKey(f.Label)
		if fn == "" || norm == "" {
			continue
		}
		if strings.Contains(fn, norm) || strings.Contains(norm, fn) {
			return f.ID, true
		}
	}
	return "", false
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.TrimRight(key, ":*")
	return strings.Join(strings.Fields(strings.ReplaceAll(key, "_", " ")), " ")
}
