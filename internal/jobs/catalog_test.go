package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hh-interviewer/internal/interview"
)

const sampleFile = `
jobs:
  - id: backend-go
    title: " Backend Engineer "
    description: |
      Build and run payment APIs.
    required-skills: [Go, " ", PostgreSQL]
  - id: data
    title: Data Analyst
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0o600))

	catalog, err := LoadFile(path)
	require.NoError(t, err)

	job, err := catalog.Job(context.Background(), "backend-go")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", job.Title)
	assert.Equal(t, "Build and run payment APIs.", job.Description)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, job.RequiredSkills)

	data, err := catalog.Job(context.Background(), "data")
	require.NoError(t, err)
	assert.Empty(t, data.RequiredSkills)

	ids := []string{}
	for _, j := range catalog.List() {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"backend-go", "data"}, ids)
}

func TestJobNotFound(t *testing.T) {
	catalog := New(interview.Job{ID: "a"})
	_, err := catalog.Job(context.Background(), "b")
	assert.ErrorIs(t, err, interview.ErrNotFound)
}

func TestJobReturnsCopy(t *testing.T) {
	catalog := New(interview.Job{ID: "a", RequiredSkills: []string{"Go"}})

	job, err := catalog.Job(context.Background(), "a")
	require.NoError(t, err)
	job.RequiredSkills[0] = "Rust"

	again, err := catalog.Job(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Go", again.RequiredSkills[0])
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"invalid yaml": "jobs: [",
		"missing id":   "jobs:\n  - title: x\n",
		"duplicate id": "jobs:\n  - id: a\n  - id: a\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
