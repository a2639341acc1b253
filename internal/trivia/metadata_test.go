package trivia

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pgschema/pgmodel/internal/lexer"
)

func TestParseInlineMetadata(t *testing.T) {
	tests := []struct {
		name string
		text string
		want InlineMetadata
	}{
		{
			name: "colon syntax",
			text: "comment: User ID; to_name: UserId;",
			want: InlineMetadata{Comment: "User ID", ToName: "UserId"},
		},
		{
			name: "paren syntax",
			text: "comment(User ID); to_name(UserId);",
			want: InlineMetadata{Comment: "User ID", ToName: "UserId"},
		},
		{
			name: "order independent",
			text: "to_type: uuid; comment: primary key;",
			want: InlineMetadata{Comment: "primary key", ToType: "uuid"},
		},
		{
			name: "aliases",
			text: "type(numeric(10,2)) rename(Amount)",
			want: InlineMetadata{ToType: "numeric(10,2)", ToName: "Amount"},
		},
		{
			name: "mixed syntaxes without trailing semicolon",
			text: "comment: created at to_type(timestamptz)",
			want: InlineMetadata{Comment: "created at", ToType: "timestamptz"},
		},
		{
			name: "leading marker is stripped",
			text: "-- to_name: Email",
			want: InlineMetadata{ToName: "Email"},
		},
		{
			name: "block marker is stripped",
			text: "/* comment: kept */",
			want: InlineMetadata{Comment: "kept"},
		},
		{
			name: "plain text becomes comment",
			text: "  the display name  ",
			want: InlineMetadata{Comment: "the display name"},
		},
		{
			name: "to_type is not read as type",
			text: "to_type: int8;",
			want: InlineMetadata{ToType: "int8"},
		},
		{
			name: "first occurrence wins",
			text: "to_name: A; to_name: B;",
			want: InlineMetadata{ToName: "A"},
		},
		{
			name: "case insensitive keywords",
			text: "COMMENT: shouting; To_Name: Loud;",
			want: InlineMetadata{Comment: "shouting", ToName: "Loud"},
		},
		{
			name: "empty",
			text: "",
			want: InlineMetadata{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInlineMetadata(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseInlineMetadata(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestParseInlineMetadataSyntaxEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"comment: User ID; to_name: UserId;", "comment(User ID); to_name(UserId);"},
		{"to_type: text; comment: note;", "type(text) comment(note)"},
		{"to_name: X;", "rename(X)"},
	}
	for _, p := range pairs {
		a, b := ParseInlineMetadata(p[0]), ParseInlineMetadata(p[1])
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("%q and %q parse differently (-a +b):\n%s", p[0], p[1], diff)
		}
	}
}

func TestIsSignificant(t *testing.T) {
	tokens := lexer.Tokenize("SELECT -- c\n /* b */ 1")
	var kinds []lexer.Kind
	for _, tok := range tokens {
		if IsSignificant(tok) {
			kinds = append(kinds, tok.Kind)
		}
	}
	want := []lexer.Kind{lexer.Keyword, lexer.Number}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("significant kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestCommentText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"-- hello", "hello"},
		{"--hello  ", "hello"},
		{"/* hello */", "hello"},
		{"/*\n * line one\n * line two\n */", "line one\nline two"},
	}
	for _, tt := range tests {
		tok := lexer.Tokenize(tt.input)[0]
		if got := CommentText(tok); got != tt.want {
			t.Errorf("CommentText(%q) = %q; want %q", tt.input, got, tt.want)
		}
	}
}

func FuzzParseInlineMetadata(f *testing.F) {
	f.Add("User ID", "uuid", "UserId")
	f.Add("", "numeric", "")
	f.Add("  spaced out  ", "timestamp with time zone", "CreatedAt")
	f.Add("-- marker", "text[]", "/* x */")
	f.Add("comment: nested", "type(", "rename)")

	f.Fuzz(func(t *testing.T, comment, toType, toName string) {
		for _, text := range []string{comment, toType, toName, comment + ";" + toType + "(" + toName} {
			ParseInlineMetadata(text)
		}

		for _, v := range []string{comment, toType, toName} {
			if strings.ContainsAny(v, ";()") || fieldPattern.MatchString(v) {
				t.Skip()
			}
		}
		colon := "comment: " + comment + "; to_type: " + toType + "; to_name: " + toName + ";"
		paren := "comment(" + comment + "); to_type(" + toType + "); to_name(" + toName + ");"
		want := InlineMetadata{
			Comment: strings.TrimSpace(comment),
			ToType:  strings.TrimSpace(toType),
			ToName:  strings.TrimSpace(toName),
		}
		if diff := cmp.Diff(want, ParseInlineMetadata(colon)); diff != "" {
			t.Errorf("colon form %q mismatch (-want +got):\n%s", colon, diff)
		}
		if diff := cmp.Diff(want, ParseInlineMetadata(paren)); diff != "" {
			t.Errorf("paren form %q mismatch (-want +got):\n%s", paren, diff)
		}
	})
}
