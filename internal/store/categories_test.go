//go:build unit

package store

import (
	"sort"
	"testing"

	"go-wiki-store/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func categoryNames(cats []*data.CategoryInfo) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.FullName)
	}
	sort.Strings(out)
	return out
}

func TestRebindPage_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "ns")
	page := env.addPage(t, "ns", "Main")
	for _, name := range []string{"c1", "c2", "c3"} {
		_, err := env.store.AddCategory(env.ctx, "ns", name)
		require.NoError(t, err)
	}

	require.NoError(t, env.store.RebindPage(env.ctx, page, []string{"ns.c1", "ns.c3"}))
	cats, err := env.store.GetCategoriesForPage(env.ctx, page)
	require.NoError(t, err)
	assert.Equal(t, []string{"ns.c1", "ns.c3"}, categoryNames(cats))

	require.NoError(t, env.store.RebindPage(env.ctx, page, []string{"ns.c1", "ns.c2"}))
	cats, err = env.store.GetCategoriesForPage(env.ctx, page)
	require.NoError(t, err)
	assert.Equal(t, []string{"ns.c1", "ns.c2"}, categoryNames(cats))

	require.NoError(t, env.store.RebindPage(env.ctx, page, nil))
	cats, err = env.store.GetCategoriesForPage(env.ctx, page)
	require.NoError(t, err)
	assert.Empty(t, cats)

	uncategorized, err := env.store.GetUncategorizedPages(env.ctx, "ns")
	require.NoError(t, err)
	require.Len(t, uncategorized, 1)
	assert.Equal(t, "ns.Main", uncategorized[0].FullName)
}

func TestRebindPage_UnknownCategoryWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	page := env.addPage(t, "", "Main")
	_, err := env.store.AddCategory(env.ctx, "", "known")
	require.NoError(t, err)
	require.NoError(t, env.store.RebindPage(env.ctx, page, []string{"known"}))

	err = env.store.RebindPage(env.ctx, page, []string{"unknown"})
	assert.ErrorIs(t, err, ErrNotFound)

	cats, err := env.store.GetCategoriesForPage(env.ctx, page)
	require.NoError(t, err)
	assert.Equal(t, []string{"known"}, categoryNames(cats))
}

func TestRebindPage_OtherNamespaceRejected(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "ns")
	page := env.addPage(t, "", "Main")
	_, err := env.store.AddCategory(env.ctx, "ns", "cat")
	require.NoError(t, err)

	err = env.store.RebindPage(env.ctx, page, []string{"ns.cat"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCategoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "ns")
	a := env.addPage(t, "ns", "A")
	b := env.addPage(t, "ns", "B")
	_, err := env.store.AddCategory(env.ctx, "ns", "one")
	require.NoError(t, err)
	_, err = env.store.AddCategory(env.ctx, "ns", "two")
	require.NoError(t, err)
	_, err = env.store.AddCategory(env.ctx, "ns", "one")
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, env.store.RebindPage(env.ctx, a, []string{"ns.one"}))
	require.NoError(t, env.store.RebindPage(env.ctx, b, []string{"ns.one", "ns.two"}))

	renamed, err := env.store.RenameCategory(env.ctx, "ns.one", "first")
	require.NoError(t, err)
	assert.Equal(t, "ns.first", renamed.FullName)
	assert.ElementsMatch(t, []string{"ns.A", "ns.B"}, []string(renamed.Pages))
	_, err = env.store.RenameCategory(env.ctx, "ns.first", "two")
	assert.ErrorIs(t, err, ErrConflict)

	merged, err := env.store.MergeCategories(env.ctx, "ns.first", "ns.two")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ns.A", "ns.B"}, []string(merged.Pages))

	cats, err := env.store.GetCategories(env.ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, []string{"ns.two"}, categoryNames(cats))

	require.NoError(t, env.store.RemoveCategory(env.ctx, "ns.two"))
	assert.ErrorIs(t, env.store.RemoveCategory(env.ctx, "ns.two"), ErrNotFound)
}

func TestMergeCategories_DifferentNamespaces(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "ns")
	_, err := env.store.AddCategory(env.ctx, "", "root")
	require.NoError(t, err)
	_, err = env.store.AddCategory(env.ctx, "ns", "other")
	require.NoError(t, err)

	_, err = env.store.MergeCategories(env.ctx, "root", "ns.other")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
