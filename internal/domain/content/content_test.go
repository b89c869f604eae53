package content

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPagesIsCeil(t *testing.T) {
	for total := 0; total <= 50; total++ {
		for size := 1; size <= 12; size++ {
			want := int(math.Ceil(float64(total) / float64(size)))
			assert.Equal(t, want, TotalPages(total, size), "total=%d size=%d", total, size)
		}
	}
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestPaginate(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7}
	p := Paginate(all, PageRequest{Page: 2, PageSize: 3})
	assert.Equal(t, []int{4, 5, 6}, p.Items)
	assert.Equal(t, 7, p.TotalItems)
	assert.Equal(t, 3, p.TotalPages)

	p = Paginate(all, PageRequest{Page: 9, PageSize: 3})
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)

	req := PageRequest{Page: -1, PageSize: 500}.Normalize(20, 100)
	assert.Equal(t, PageRequest{Page: 1, PageSize: 100}, req)
	req = PageRequest{}.Normalize(20, 100)
	assert.Equal(t, 20, req.PageSize)
}

type kinds map[string]bool

func (k kinds) Has(domain, kind string) bool { return k[domain+"/"+kind] }

func TestValidateConcept(t *testing.T) {
	known := kinds{"algorithms/bubble_sort": true}
	c := Concept{CourseID: NewID(), Name: "Bubble sort", Domain: "algorithms", RenderKind: "bubble_sort"}
	require.NoError(t, ValidateConcept(c, known))

	c.RenderKind = "bogo_sort"
	assert.ErrorIs(t, ValidateConcept(c, known), ErrInvalid)

	c.Domain, c.RenderKind = "", "bubble_sort"
	assert.ErrorIs(t, ValidateConcept(c, known), ErrInvalid, "render kind needs a domain")

	assert.ErrorIs(t, ValidateConcept(Concept{CourseID: "nope", Name: "x"}, nil), ErrInvalid)
	assert.ErrorIs(t, Validate(Course{SubjectID: NewID(), Title: "t", Level: "expert"}), ErrInvalid)
	assert.NoError(t, Validate(Subject{Name: "Math"}))
	assert.True(t, ValidID(NewID()))
	assert.False(t, ValidID("x"))
}

func concepts(names ...string) map[string]Concept {
	out := make(map[string]Concept, len(names))
	for _, n := range names {
		out[n] = Concept{ID: n, Name: n}
	}
	return out
}

func TestCheckPrerequisite(t *testing.T) {
	req := Requires{"c": {"b"}, "b": {"a"}}
	assert.ErrorIs(t, req.CheckPrerequisite("a", "a"), ErrCycle)
	assert.ErrorIs(t, req.CheckPrerequisite("a", "c"), ErrCycle)
	assert.NoError(t, req.CheckPrerequisite("c", "a"))
	assert.NoError(t, req.CheckPrerequisite("d", "c"))
}

func TestLearningPath(t *testing.T) {
	all := concepts("arrays", "loops", "sorting", "recursion", "merge", "graphs")
	req := Requires{
		"merge":     {"sorting", "recursion"},
		"sorting":   {"arrays", "loops"},
		"recursion": {"loops"},
	}
	path, err := LearningPath("merge", all, req)
	require.NoError(t, err)

	names := make([]string, len(path))
	pos := make(map[string]int, len(path))
	for i, c := range path {
		names[i] = c.Name
		pos[c.ID] = i
	}
	assert.Equal(t, []string{"arrays", "loops", "recursion", "sorting", "merge"}, names)
	for id, pres := range req {
		if _, ok := pos[id]; !ok {
			continue
		}
		for _, p := range pres {
			assert.Less(t, pos[p], pos[id], "%s before %s", p, id)
		}
	}
	assert.NotContains(t, names, "graphs")

	path, err = LearningPath("graphs", all, req)
	require.NoError(t, err)
	assert.Len(t, path, 1)

	_, err = LearningPath("missing", all, req)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = LearningPath("a", concepts("a", "b"), Requires{"a": {"b"}, "b": {"a"}})
	assert.ErrorIs(t, err, ErrCycle)
}
