package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func classified(title, description, location string) *JobPosting {
	p := &JobPosting{Title: title, Description: description, Location: location}
	Classify(p)
	return p
}

func TestClassifyJobType(t *testing.T) {
	assert.Equal(t, "full-time", classified("Software Engineer", "", "").JobType)
	assert.Equal(t, "part-time", classified("Part-Time Developer", "", "").JobType)
	assert.Equal(t, "part-time", classified("Developer", "This is a part time role", "").JobType)
	assert.Equal(t, "contract", classified("Developer", "6 month contract", "").JobType)
	assert.Equal(t, "internship", classified("Software Engineering Intern", "", "").JobType)
}

func TestClassifyExperienceLevel(t *testing.T) {
	assert.Equal(t, "senior", classified("Senior Backend Engineer", "", "").ExperienceLevel)
	assert.Equal(t, "senior", classified("Staff Engineer", "", "").ExperienceLevel)
	assert.Equal(t, "entry", classified("Junior Developer", "", "").ExperienceLevel)
	assert.Equal(t, "entry", classified("Entry Level QA Analyst", "", "").ExperienceLevel)
	assert.Equal(t, "mid", classified("Software Engineer", "", "").ExperienceLevel)
}

func TestClassifyRemote(t *testing.T) {
	assert.True(t, classified("Remote Software Engineer", "", "").IsRemote)
	assert.True(t, classified("Engineer", "fully remote team", "").IsRemote)
	assert.True(t, classified("Engineer", "", "Remote").IsRemote)
	assert.True(t, classified("Customer Support", "Work from home position", "").IsRemote)
	assert.True(t, classified("Engineer", "", "Work From Home").IsRemote)
	assert.False(t, classified("Engineer", "on-site in Austin", "Austin, TX").IsRemote)
}

func TestClassifyTagsWordBounded(t *testing.T) {
	p := classified("Engineer", "We use javascript and react, plus sql on aws.", "")
	assert.ElementsMatch(t, StringSlice{"javascript", "react", "sql", "aws"}, p.Tags)
	// "javascript" must not also produce a "java" tag.
	assert.NotContains(t, p.Tags, "java")

	withJava := classified("Java Developer", "Spring services in java.", "")
	assert.Contains(t, withJava.Tags, "java")
}

func TestClassifyTagsCapped(t *testing.T) {
	p := classified("Engineer",
		"javascript typescript react python java golang sql aws docker kubernetes node", "")
	assert.LessOrEqual(t, len(p.Tags), 10)
}
