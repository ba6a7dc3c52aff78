package headhunter

import (
	"fmt"
	"strings"

	"github.com/spigell/hh-interviewer/internal/interview"
)

type Vacancies struct {
	Items []*Vacancy
}

type Vacancy struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	Area struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"area,omitempty"`
	Experience struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"experience,omitempty"`
	Employer struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"employer,omitempty"`
	AlternateURL string `json:"alternate_url,omitempty"`
	// Description is HTML as returned by the API.
	Description string `json:"description,omitempty"`
	KeySkills   []struct {
		Name string `json:"name,omitempty"`
	} `json:"key_skills,omitempty"`
	Archived bool `json:"archived,omitempty"`
	Snipet   struct {
		Requirement    string `json:"requirement,omitempty"`
		Responsibility string `json:"responsibility,omitempty"`
	} `json:"snippet,omitempty"`
	ProfessionalRoles []struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	} `json:"professional_roles,omitempty"`
}

// Job converts the vacancy into the engine's view of a job. Search results
// carry no description, so the snippet stands in for it.
func (va *Vacancy) Job() interview.Job {
	description := PlainText(va.Description)
	if description == "" {
		parts := make([]string, 0, 2)
		for _, s := range []string{va.Snipet.Requirement, va.Snipet.Responsibility} {
			if text := PlainText(s); text != "" {
				parts = append(parts, text)
			}
		}
		description = strings.Join(parts, "\n")
	}

	skills := make([]string, 0, len(va.KeySkills))
	seen := make(map[string]struct{}, len(va.KeySkills))
	for _, skill := range va.KeySkills {
		name := strings.TrimSpace(skill.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		skills = append(skills, name)
	}

	return interview.Job{
		ID:             va.ID,
		Title:          strings.TrimSpace(va.Name),
		Description:    description,
		RequiredSkills: skills,
	}
}

// Label is a one-line description for pickers.
func (va *Vacancy) Label() string {
	label := va.Name
	if va.Employer.Name != "" {
		label = fmt.Sprintf("%s, %s", label, va.Employer.Name)
	}
	if va.Area.Name != "" {
		label = fmt.Sprintf("%s (%s)", label, va.Area.Name)
	}
	return label
}

func (v *Vacancies) Len() int {
	return len(v.Items)
}

func (v *Vacancies) Labels() []string {
	labels := make([]string, 0, len(v.Items))
	for _, vacancy := range v.Items {
		labels = append(labels, vacancy.Label())
	}
	return labels
}

func (v *Vacancies) FindByID(id string) *Vacancy {
	for _, vacancy := range v.Items {
		if vacancy.ID == id {
			return vacancy
		}
	}
	return nil
}
