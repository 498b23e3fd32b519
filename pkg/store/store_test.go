package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgiordano/cotejo/pkg/models"
)

func row(column, value string) models.Row {
	r := models.NewRow()
	r.Set(column, models.StringField(value))
	return r
}

func TestIngestAssignsStableIndices(t *testing.T) {
	s := New()
	s.Ingest(models.SourceTax, []models.Row{row("CUIT", "1"), row("CUIT", "2")})
	s.Ingest(models.SourceTax, []models.Row{row("CUIT", "3")})

	records := s.Records(models.SourceTax)
	require.Len(t, records, 3)
	assert.Equal(t, 0, records[0].OriginalIndex)
	assert.Equal(t, 1, records[1].OriginalIndex)
	assert.Equal(t, 2, records[2].OriginalIndex)

	for _, rec := range records {
		assert.Equal(t, models.StatusPending, rec.Status)
		assert.Empty(t, rec.MatchID)
	}
}

func TestByIndexSurvivesMutation(t *testing.T) {
	s := New()
	s.Ingest(models.SourceBooks, []models.Row{row("CUIT", "1"), row("CUIT", "2")})

	rec, ok := s.ByIndex(models.SourceBooks, 1)
	require.True(t, ok)
	rec.Status = models.StatusReconciled
	rec.MatchID = "m1"

	again, ok := s.ByIndex(models.SourceBooks, 1)
	require.True(t, ok)
	assert.Equal(t, models.StatusReconciled, again.Status)
	assert.Equal(t, "m1", again.MatchID)

	_, ok = s.ByIndex(models.SourceBooks, 99)
	assert.False(t, ok)
}

func TestGroupSpansBothSources(t *testing.T) {
	s := New()
	s.Ingest(models.SourceTax, []models.Row{row("CUIT", "1")})
	s.Ingest(models.SourceBooks, []models.Row{row("CUIT", "1"), row("CUIT", "2")})

	taxRec, _ := s.ByIndex(models.SourceTax, 0)
	booksRec, _ := s.ByIndex(models.SourceBooks, 1)
	taxRec.MatchID = "g1"
	booksRec.MatchID = "g1"

	group := s.Group("g1")
	require.Len(t, group, 2)
	assert.Equal(t, models.SourceTax, group[0].Source)
	assert.Equal(t, models.SourceBooks, group[1].Source)

	assert.Nil(t, s.Group(""))
}

func TestSetCommentIndependentOfStatus(t *testing.T) {
	s := New()
	s.Ingest(models.SourceTax, []models.Row{row("CUIT", "1")})

	assert.True(t, s.SetComment(models.SourceTax, 0, "revisar"))
	rec, _ := s.ByIndex(models.SourceTax, 0)
	assert.Equal(t, "revisar", rec.Comment)
	assert.Equal(t, models.StatusPending, rec.Status)

	assert.False(t, s.SetComment(models.SourceTax, 42, "nada"))
}

func TestLoadRestoresState(t *testing.T) {
	s := New()
	s.Load([]models.Record{
		{OriginalIndex: 0, Source: models.SourceTax, Status: models.StatusReconciled, MatchID: "auto_1"},
		{OriginalIndex: 0, Source: models.SourceBooks, Status: models.StatusReconciled, MatchID: "auto_1"},
		{OriginalIndex: 1, Source: models.SourceBooks, Status: models.StatusPending},
	})

	assert.Equal(t, 1, s.Len(models.SourceTax))
	assert.Equal(t, 2, s.Len(models.SourceBooks))

	group := s.Group("auto_1")
	assert.Len(t, group, 2)
}
