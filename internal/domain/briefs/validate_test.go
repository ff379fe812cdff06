package briefs

import (
	"strings"
	"testing"

	"gorm.io/datatypes"
)

func TestContentValidate(t *testing.T) {
	cases := []struct {
		name    string
		content Content
		wantErr string
	}{
		{"ok", Content{Title: "Q3 policy", Metadata: datatypes.JSON(`{"tags":["a"]}`)}, ""},
		{"missing title", Content{Body: "text"}, "title is required"},
		{"long title", Content{Title: strings.Repeat("t", 301)}, "title exceeds 300 characters"},
		{"long title in runes", Content{Title: strings.Repeat("é", 300)}, ""},
		{"long category", Content{Title: "x", Category: strings.Repeat("c", 65)}, "category exceeds 64 characters"},
		{"huge body", Content{Title: "x", Body: strings.Repeat("b", MaxBodyBytes+1)}, "body exceeds"},
		{"bad metadata", Content{Title: "x", Metadata: datatypes.JSON(`{"tags":`)}, "metadata is not valid JSON"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.content.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: want=nil got=%v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate: want=%q got=%v", tc.wantErr, err)
			}
		})
	}
}

func TestContentNormalize(t *testing.T) {
	c := Content{AuthorID: " a-1 ", Category: "\tpolicy\n", Title: "  Title  ", Body: "  keep  "}
	c.Normalize()
	if c.AuthorID != "a-1" || c.Category != "policy" || c.Title != "Title" || c.Body != "  keep  " {
		t.Fatalf("Normalize: got=%+v", c)
	}
}
