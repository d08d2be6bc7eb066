package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField_HeadingDepth(t *testing.T) {
	assert.Equal(t, 1, FieldH1.HeadingDepth())
	assert.Equal(t, 6, FieldH6.HeadingDepth())
	assert.Equal(t, 0, FieldTitle.HeadingDepth())
	assert.Equal(t, 0, FieldBody.HeadingDepth())
}

func TestHeadingField_Range(t *testing.T) {
	f, err := HeadingField(3)
	require.NoError(t, err)
	assert.Equal(t, FieldH3, f)

	_, err = HeadingField(0)
	assert.Error(t, err)
	_, err = HeadingField(7)
	assert.Error(t, err)
}

func TestField_Columns(t *testing.T) {
	assert.Equal(t, "h2", FieldH2.Column())
	assert.Equal(t, "h2_normalized", FieldH2.NormalizedColumn())
}

func TestIsQueryField(t *testing.T) {
	for _, name := range []string{"title", "h1", "h6", "headings", "body"} {
		assert.True(t, IsQueryField(name), name)
	}
	assert.False(t, IsQueryField("h7"))
	assert.False(t, IsQueryField("author"))
}

func TestDocument_FieldPair(t *testing.T) {
	doc := &Document{
		Title:     "Título",
		TitleNorm: "titulo",
		Body:      "Body",
		BodyNorm:  "body",
	}
	doc.Headings[1] = "Sección"
	doc.HeadingsNorm[1] = "seccion"

	raw, norm := doc.FieldPair(FieldTitle)
	assert.Equal(t, "Título", raw)
	assert.Equal(t, "titulo", norm)

	raw, norm = doc.FieldPair(FieldH2)
	assert.Equal(t, "Sección", raw)
	assert.Equal(t, "seccion", norm)

	raw, norm = doc.FieldPair(FieldBody)
	assert.Equal(t, "Body", raw)
	assert.Equal(t, "body", norm)
}

func TestDocument_StructureAndSectionsRoundtrip(t *testing.T) {
	doc := &Document{
		Structure: []string{"s1", "s0"},
		Sections: map[string]*Section{
			"s0": {ID: "s0", Type: SectionBody, Depth: 0},
			"s1": {
				ID: "s1", Type: SectionH1, Depth: 1, Text: "Root",
				Position:    Position{Start: 10, End: 16},
				ChildrenIDs: []string{"s2"},
			},
			"s2": {
				ID: "s2", Type: SectionH2, Depth: 2, Text: "Child",
				ParentID: "s1",
				Content: []ContentBlock{
					{Type: BlockCode, Text: "x := 1", Position: Position{Start: 30, End: 40}, Lang: "go"},
				},
			},
		},
	}

	structureBlob, err := doc.MarshalStructure()
	require.NoError(t, err)
	sectionsBlob, err := doc.MarshalSections()
	require.NoError(t, err)

	var restored Document
	require.NoError(t, restored.UnmarshalStructure(structureBlob))
	require.NoError(t, restored.UnmarshalSections(sectionsBlob))

	assert.Equal(t, doc.Structure, restored.Structure)
	require.Contains(t, restored.Sections, "s2")
	assert.Equal(t, "s1", restored.Sections["s2"].ParentID)
	assert.Equal(t, "go", restored.Sections["s2"].Content[0].Lang)
}

func TestDocument_SectionsInOrder(t *testing.T) {
	doc := &Document{
		Sections: map[string]*Section{
			"s0": {ID: "s0", Type: SectionBody, Depth: 0, Position: Position{Start: 0}},
			"s1": {ID: "s1", Type: SectionH1, Depth: 1, Position: Position{Start: 50}},
			"s2": {ID: "s2", Type: SectionH2, Depth: 2, Position: Position{Start: 20}},
		},
	}
	ordered := doc.SectionsInOrder()
	require.Len(t, ordered, 3)
	assert.Equal(t, "s0", ordered[0].ID)
	assert.Equal(t, "s2", ordered[1].ID)
	assert.Equal(t, "s1", ordered[2].ID)
}

func TestPosition_Contains(t *testing.T) {
	p := Position{Start: 10, End: 20}
	assert.True(t, p.Contains(10))
	assert.True(t, p.Contains(19))
	assert.False(t, p.Contains(20))
	assert.False(t, p.Contains(9))
}
