package analysis_test

import (
	"testing"

	"github.com/kiranshivaraju/brandlens/internal/analysis"
	"github.com/stretchr/testify/assert"
)

func TestVariants(t *testing.T) {
	tests := []struct {
		brand string
		want  []string
	}{
		{"Notion", []string{"notion.so", "notion app"}},
		{"Roam Research", []string{"roamresearch", "roamresearch.com", "roam-research"}},
		{"Visual Studio Code", []string{"visualstudiocode", "visual-studio-code", "vsc"}},
		{"Google-Docs", []string{"googledocs", "google docs"}},
		{"Logseq", []string{"logseq app"}},
		{"Acme", nil},
		{"  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.brand, func(t *testing.T) {
			assert.Equal(t, tt.want, analysis.Variants(tt.brand))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "notion", analysis.Fold("  NOTION "))
	assert.Equal(t, "notion", analysis.Fold("ＮＯＴＩＯＮ"))
	assert.Equal(t, "don't", analysis.Fold("Don’t"))
}

func TestSnippet_TrimsToSentence(t *testing.T) {
	text := "Intro sentence here. Notion is great for teams. Another sentence follows here."
	r := analysis.Analyze(text, []string{"Notion"}, "improved")[0]

	if assert.NotNil(t, r.ContextSnippet) {
		assert.Equal(t, "Notion is great for teams.", *r.ContextSnippet)
	}
}

func TestSnippet_DomainVariantNotSplit(t *testing.T) {
	text := "Most people start with obsidian.md because it stores plain files locally on disk."
	r := analysis.Analyze(text, []string{"Obsidian"}, "improved")[0]

	if assert.NotNil(t, r.ContextSnippet) {
		assert.Contains(t, *r.ContextSnippet, "obsidian.md")
	}
}

func TestSnippet_BoundedLength(t *testing.T) {
	long := "word word word word word word word word word word word word word word Notion word word word word word word word word word word word word word word"
	r := analysis.Analyze(long, []string{"Notion"}, "simple")[0]

	if assert.NotNil(t, r.ContextSnippet) {
		assert.LessOrEqual(t, len([]rune(*r.ContextSnippet)), len("Notion")+80)
		assert.Contains(t, *r.ContextSnippet, "Notion")
	}
}

func TestSnippet_ChineseSentence(t *testing.T) {
	text := "第一句话。我们团队推荐Notion做知识库！最后一句。"
	r := analysis.Analyze(text, []string{"Notion"}, "improved")[0]

	if assert.NotNil(t, r.ContextSnippet) {
		assert.Equal(t, "我们团队推荐Notion做知识库！", *r.ContextSnippet)
	}
}

func TestSnippet_FullWidthPunctuationKept(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		brand string
		want  string
	}{
		{
			name:  "exclamation ends sentence",
			text:  "第一句话。我们团队推荐Notion做知识库！最后一句很长很长。",
			brand: "Notion",
			want:  "我们团队推荐Notion做知识库！",
		},
		{
			name:  "question ends sentence",
			text:  "你用过Notion吗？我觉得Obsidian更好。",
			brand: "Notion",
			want:  "你用过Notion吗？",
		},
		{
			name:  "full width latin left as written",
			text:  "Ｎｏｔｉｏｎ is great.",
			brand: "Notion",
			want:  "Ｎｏｔｉｏｎ is great.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analysis.Analyze(tt.text, []string{tt.brand}, "improved")[0]

			assert.True(t, r.Mentioned)
			if assert.NotNil(t, r.ContextSnippet) {
				assert.Equal(t, tt.want, *r.ContextSnippet)
				assert.Contains(t, tt.text, *r.ContextSnippet)
			}
		})
	}
}

func TestNewText_AlignedWithInput(t *testing.T) {
	in := "Ｎｏｔｉｏｎ ﬁle！"
	text := analysis.NewText(in)

	assert.Equal(t, in, string(text.Original))
	assert.Len(t, text.Folded, len(text.Original))
	assert.Equal(t, "notion ﬁle!", string(text.Folded))
}
