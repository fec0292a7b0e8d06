package record

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecarPath(t *testing.T) {
	tests := []struct {
		doc  string
		want string
	}{
		{"/papers/scan_001.png", "/papers/scan_001.json"},
		{"/papers/math.final.PDF", "/papers/math.final.json"},
		{"relative/page.jpeg", "relative/page.json"},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			assert.Equal(t, tt.want, SidecarPath(tt.doc))
		})
	}
}

func TestStore_PersistAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs)
	doc := "/papers/exam.jpg"

	require.False(t, store.Exists(doc))

	rec := &Record{Subject: SubjectMath, Title: "数学测试卷"}
	rec.SetExtraction([]string{"数学测试卷", "1. 2+2=?"}, []Box{RectBox(0, 0, 10, 5), RectBox(0, 6, 10, 11)})
	rec.SetMistakes([]Mistake{{Question: "1. 2+2=?", Reason: "计算错误", Page: 1}}, nil)

	require.NoError(t, store.Persist(rec, doc))
	assert.True(t, store.Exists(doc))

	raw, err := afero.ReadFile(fs, "/papers/exam.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "数学测试卷", "non-ASCII text is written unescaped")

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"texts", "boxes", "subject", "title", "mistakes", "mistakes_count", "failed_pages"} {
		assert.Contains(t, fields, key)
	}
	assert.EqualValues(t, 1, fields["mistakes_count"])

	loaded, err := store.Load(doc)
	require.NoError(t, err)
	assert.Equal(t, rec.Texts, loaded.Texts)
	assert.Equal(t, rec.Boxes, loaded.Boxes)
	assert.Equal(t, rec.Mistakes, loaded.Mistakes)
	assert.Equal(t, []int{}, loaded.FailedPages)
}

func TestStore_PersistOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs)
	doc := "/papers/a.png"

	require.NoError(t, store.Persist(&Record{Title: "first"}, doc))
	require.NoError(t, store.Persist(&Record{Title: "second"}, doc))

	loaded, err := store.Load(doc)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Title)
}

func TestStore_PersistError(t *testing.T) {
	store := NewStore(afero.NewReadOnlyFs(afero.NewMemMapFs()))

	err := store.Persist(&Record{}, "/papers/a.png")
	require.Error(t, err)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "/papers/a.json", perr.Path)
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(afero.NewMemMapFs())

	_, err := store.Load("/papers/none.pdf")
	var perr *PersistenceError
	assert.ErrorAs(t, err, &perr)
}

func TestRecord_OmitsFieldsOfStagesThatDidNotRun(t *testing.T) {
	rec := Record{}
	rec.SetExtraction(nil, nil)

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"texts":[],"boxes":[]}`, string(raw))
}

func TestRecord_MistakesCountFollowsList(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"mistakes":[{"question":"q","reason":"r"}],"mistakes_count":7,"extra":true}`), &rec))
	assert.Equal(t, 1, rec.MistakesCount())

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"mistakes_count":1`)
}

func TestValidSubject(t *testing.T) {
	assert.True(t, ValidSubject("数学"))
	assert.True(t, ValidSubject("英语"))
	assert.True(t, ValidSubject("语文"))
	assert.False(t, ValidSubject("物理"))
	assert.False(t, ValidSubject("math"))
}

func TestRecord_HasTexts(t *testing.T) {
	assert.False(t, (&Record{}).HasTexts())
	assert.False(t, (&Record{Texts: []string{}}).HasTexts())

	var rec Record
	rec.SetExtraction([]string{"期末测试卷"}, []Box{RectBox(0, 0, 10, 10)})
	assert.True(t, rec.HasTexts())
}
