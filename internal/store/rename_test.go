//go:build unit

package store

import (
	"testing"

	"go-wiki-store/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenamePage_KeepsIDContentAndBindings(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "ns1")
	page := env.addPage(t, "ns1", "Main")
	env.save(t, page, "first draft of zebras", data.SaveBackup)
	env.save(t, page, "zebras everywhere", data.SaveBackup)
	_, _, err := env.store.AddMessage(env.ctx, page, &data.Message{Username: "bob", Subject: "Stripes", Body: "why stripes"}, data.NoParent)
	require.NoError(t, err)
	_, err = env.store.AddCategory(env.ctx, "ns1", "animals")
	require.NoError(t, err)
	require.NoError(t, env.store.RebindPage(env.ctx, page, []string{"ns1.animals"}))
	_, err = env.store.AddNavigationPath(env.ctx, "ns1", "tour", []string{"ns1.Main"})
	require.NoError(t, err)

	renamed, st, err := env.store.RenamePage(env.ctx, page, "Zebras")
	require.NoError(t, err)
	assert.False(t, st.Degraded)
	assert.Equal(t, "ns1.Zebras", renamed.FullName)
	assert.Equal(t, page.PageID, renamed.PageID)

	old, err := env.store.GetPage(env.ctx, "ns1.Main")
	require.NoError(t, err)
	assert.Nil(t, old)

	content, err := env.store.GetContent(env.ctx, renamed)
	require.NoError(t, err)
	assert.Equal(t, "zebras everywhere", content.Content)
	backups, err := env.store.GetBackups(env.ctx, renamed)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, backups)

	cats, err := env.store.GetCategoriesForPage(env.ctx, renamed)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, data.NameList{"ns1.Zebras"}, cats[0].Pages)

	tour, err := env.store.GetNavigationPath(env.ctx, "ns1.tour")
	require.NoError(t, err)
	assert.Equal(t, data.NameList{"ns1.Zebras"}, tour.Pages)

	assert.Equal(t, []string{"ns1.Zebras"}, env.searchNames(t, "everywhere"))
	hits, err := env.store.Search(env.ctx, "stripes")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "ns1.Zebras", hits[0].Page.FullName)
	assert.Equal(t, 0, hits[0].MessageID)
}

func TestRenamePage_TwiceEqualsOnce(t *testing.T) {
	build := func(t *testing.T) (*testEnv, *data.PageInfo) {
		env := newTestEnv(t)
		page := env.addPage(t, "", "Original")
		env.save(t, page, "one", data.SaveBackup)
		env.save(t, page, "two", data.SaveBackup)
		_, err := env.store.AddCategory(env.ctx, "", "cat")
		require.NoError(t, err)
		require.NoError(t, env.store.RebindPage(env.ctx, page, []string{"cat"}))
		return env, page
	}

	twice, page := build(t)
	x, _, err := twice.store.RenamePage(twice.ctx, page, "X")
	require.NoError(t, err)
	y, _, err := twice.store.RenamePage(twice.ctx, x, "Y")
	require.NoError(t, err)

	once, page2 := build(t)
	y2, _, err := once.store.RenamePage(once.ctx, page2, "Y")
	require.NoError(t, err)

	for _, env := range []*testEnv{twice, once} {
		p, err := env.store.GetPage(env.ctx, "Y")
		require.NoError(t, err)
		require.NotNil(t, p)
		content, err := env.store.GetContent(env.ctx, p)
		require.NoError(t, err)
		assert.Equal(t, "two", content.Content)
		backups, err := env.store.GetBackups(env.ctx, p)
		require.NoError(t, err)
		assert.Equal(t, []int{0}, backups)
		cat, err := env.store.GetCategory(env.ctx, "cat")
		require.NoError(t, err)
		assert.Equal(t, data.NameList{"Y"}, cat.Pages)
	}
	assert.Equal(t, page.PageID, y.PageID)
	assert.Equal(t, page2.PageID, y2.PageID)
}

func TestRenamePage_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	a := env.addPage(t, "", "A")
	env.addPage(t, "", "B")

	_, _, err := env.store.RenamePage(env.ctx, a, "B")
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = env.store.RenamePage(env.ctx, a, "A")
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = env.store.RenamePage(env.ctx, a, "bad.name")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = env.store.RenamePage(env.ctx, &data.PageInfo{FullName: "Ghost", PageID: "x"}, "C")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenamePage_ResumesAfterPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	page := env.addPage(t, "", "Main")
	env.save(t, page, "resumable content", data.SaveNormal)
	_, err := env.store.AddCategory(env.ctx, "", "cat")
	require.NoError(t, err)
	require.NoError(t, env.store.RebindPage(env.ctx, page, []string{"cat"}))

	env.client.failTable(data.TableCategories)
	_, _, err = env.store.RenamePage(env.ctx, page, "Renamed")
	require.ErrorIs(t, err, errInjected)

	// The metadata step committed; the category step did not.
	moved, err := env.store.GetPage(env.ctx, "Renamed")
	require.NoError(t, err)
	require.NotNil(t, moved)
	cat, err := env.store.GetCategory(env.ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, data.NameList{"Main"}, cat.Pages)

	env.client.heal()
	renamed, _, err := env.store.RenamePage(env.ctx, page, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, page.PageID, renamed.PageID)

	cat, err = env.store.GetCategory(env.ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, data.NameList{"Renamed"}, cat.Pages)
	assert.Equal(t, []string{"Renamed"}, env.searchNames(t, "resumable"))
}

func TestMovePage(t *testing.T) {
	for _, copyCategories := range []bool{false, true} {
		env := newTestEnv(t)
		env.addNamespace(t, "src")
		env.addNamespace(t, "dst")
		page := env.addPage(t, "src", "Main")
		env.save(t, page, "travelling text", data.SaveNormal)
		_, err := env.store.AddCategory(env.ctx, "src", "cat")
		require.NoError(t, err)
		require.NoError(t, env.store.RebindPage(env.ctx, page, []string{"src.cat"}))

		moved, _, err := env.store.MovePage(env.ctx, page, "dst", copyCategories)
		require.NoError(t, err)
		assert.Equal(t, "dst.Main", moved.FullName)
		assert.Equal(t, page.PageID, moved.PageID)

		srcCat, err := env.store.GetCategory(env.ctx, "src.cat")
		require.NoError(t, err)
		assert.Empty(t, srcCat.Pages)

		dstCat, err := env.store.GetCategory(env.ctx, "dst.cat")
		require.NoError(t, err)
		if copyCategories {
			require.NotNil(t, dstCat)
			assert.Equal(t, data.NameList{"dst.Main"}, dstCat.Pages)
		} else {
			assert.Nil(t, dstCat)
		}
		assert.Equal(t, []string{"dst.Main"}, env.searchNames(t, "travelling"))
	}
}

func TestMovePage_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "dst")
	page := env.addPage(t, "", "Main")
	env.addPage(t, "dst", "Main")

	_, _, err := env.store.MovePage(env.ctx, page, "dst", false)
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = env.store.MovePage(env.ctx, page, "", false)
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = env.store.MovePage(env.ctx, page, "ghost", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameNamespace_Cascades(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "ns1")
	_, err := env.store.AddCategory(env.ctx, "ns1", "cat1")
	require.NoError(t, err)
	page := env.addPage(t, "ns1", "MainPage")
	env.save(t, page, "namespaced words", data.SaveNormal)
	require.NoError(t, env.store.RebindPage(env.ctx, page, []string{"ns1.cat1"}))
	_, err = env.store.SetNamespaceDefaultPage(env.ctx, "ns1", page.FullName)
	require.NoError(t, err)
	_, err = env.store.AddNavigationPath(env.ctx, "ns1", "tour", []string{"ns1.MainPage"})
	require.NoError(t, err)

	ns, st, err := env.store.RenameNamespace(env.ctx, "ns1", "ns2")
	require.NoError(t, err)
	assert.False(t, st.Degraded)
	assert.Equal(t, "ns2", ns.Name)
	assert.Equal(t, "ns2.MainPage", ns.DefaultPage)

	cats, err := env.store.GetCategories(env.ctx, "ns2")
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "ns2.cat1", cats[0].FullName)
	assert.Equal(t, data.NameList{"ns2.MainPage"}, cats[0].Pages)

	old, err := env.store.GetCategories(env.ctx, "ns1")
	require.NoError(t, err)
	assert.Empty(t, old)
	oldNs, err := env.store.GetNamespace(env.ctx, "ns1")
	require.NoError(t, err)
	assert.Nil(t, oldNs)
	oldPage, err := env.store.GetPage(env.ctx, "ns1.MainPage")
	require.NoError(t, err)
	assert.Nil(t, oldPage)

	moved, err := env.store.GetPage(env.ctx, "ns2.MainPage")
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, page.PageID, moved.PageID)

	tour, err := env.store.GetNavigationPath(env.ctx, "ns2.tour")
	require.NoError(t, err)
	require.NotNil(t, tour)
	assert.Equal(t, data.NameList{"ns2.MainPage"}, tour.Pages)

	assert.Equal(t, []string{"ns2.MainPage"}, env.searchNames(t, "namespaced"))
}

func TestRenameNamespace_ResumesAfterPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "ns1")
	_, err := env.store.AddCategory(env.ctx, "ns1", "cat1")
	require.NoError(t, err)
	page := env.addPage(t, "ns1", "MainPage")
	require.NoError(t, env.store.RebindPage(env.ctx, page, []string{"ns1.cat1"}))

	env.client.failTable(data.TableCategories)
	_, _, err = env.store.RenameNamespace(env.ctx, "ns1", "ns2")
	require.ErrorIs(t, err, errInjected)
	env.client.heal()

	_, _, err = env.store.RenameNamespace(env.ctx, "ns1", "ns2")
	require.NoError(t, err)

	cat, err := env.store.GetCategory(env.ctx, "ns2.cat1")
	require.NoError(t, err)
	require.NotNil(t, cat)
	assert.Equal(t, data.NameList{"ns2.MainPage"}, cat.Pages)
}

func TestRenameNamespace_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "a")
	env.addNamespace(t, "b")

	_, _, err := env.store.RenameNamespace(env.ctx, "a", "b")
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = env.store.RenameNamespace(env.ctx, "ghost", "c")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = env.store.RenameNamespace(env.ctx, "", "c")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRemoveNamespace(t *testing.T) {
	env := newTestEnv(t)
	env.addNamespace(t, "ns1")
	page := env.addPage(t, "ns1", "Main")
	env.save(t, page, "doomed text", data.SaveNormal)
	_, err := env.store.SetNamespaceDefaultPage(env.ctx, "ns1", page.FullName)
	require.NoError(t, err)
	_, err = env.store.AddCategory(env.ctx, "ns1", "cat")
	require.NoError(t, err)

	_, err = env.store.RemoveNamespace(env.ctx, "ns1")
	require.NoError(t, err)

	ns, err := env.store.GetNamespace(env.ctx, "ns1")
	require.NoError(t, err)
	assert.Nil(t, ns)
	pages, err := env.store.GetPages(env.ctx, "ns1")
	require.NoError(t, err)
	assert.Empty(t, pages)
	cats, err := env.store.GetCategories(env.ctx, "ns1")
	require.NoError(t, err)
	assert.Empty(t, cats)
	assert.Empty(t, env.searchNames(t, "doomed"))
}
