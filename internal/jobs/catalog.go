package jobs

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/spigell/hh-interviewer/internal/interview"
)

// Catalog is a static set of job postings loaded from YAML:
//
//	jobs:
//	  - id: backend-go
//	    title: Backend Engineer
//	    description: ...
//	    required-skills: [Go, PostgreSQL]
type Catalog struct {
	mu   sync.RWMutex
	jobs map[string]interview.Job
}

var _ interview.JobLookup = (*Catalog)(nil)

type fileFormat struct {
	Jobs []jobEntry `yaml:"jobs"`
}

type jobEntry struct {
	ID             string   `yaml:"id"`
	Title          string   `yaml:"title"`
	Description    string   `yaml:"description"`
	RequiredSkills []string `yaml:"required-skills"`
}

func New(jobs ...interview.Job) *Catalog {
	c := &Catalog{jobs: make(map[string]interview.Job, len(jobs))}
	for _, job := range jobs {
		c.jobs[job.ID] = job
	}
	return c
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog. Ids must be present and unique.
func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse jobs file: %w", err)
	}

	c := New()
	for i, entry := range f.Jobs {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("jobs[%d]: id is required", i)
		}
		if _, ok := c.jobs[id]; ok {
			return nil, fmt.Errorf("jobs[%d]: duplicate id %q", i, id)
		}

		skills := make([]string, 0, len(entry.RequiredSkills))
		for _, skill := range entry.RequiredSkills {
			if skill = strings.TrimSpace(skill); skill != "" {
				skills = append(skills, skill)
			}
		}

		c.jobs[id] = interview.Job{
			ID:             id,
			Title:          strings.TrimSpace(entry.Title),
			Description:    strings.TrimSpace(entry.Description),
			RequiredSkills: skills,
		}
	}
	return c, nil
}

func (c *Catalog) Job(_ context.Context, id string) (*interview.Job, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	job, ok := c.jobs[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interview.ErrJobNotFound, id)
	}
	job.RequiredSkills = append([]string(nil), job.RequiredSkills...)
	return &job, nil
}

// Put adds or replaces a job.
func (c *Catalog) Put(job interview.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[job.ID] = job
}

// List returns jobs ordered by id.
func (c *Catalog) List() []interview.Job {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]interview.Job, 0, len(c.jobs))
	for _, job := range c.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
