package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/recipe"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ladle-store-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() {
		os.Remove(f.Name())
		os.Remove(f.Name() + "-wal")
		os.Remove(f.Name() + "-shm")
	})

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testDoc(title string, ingredients ...string) *recipe.Document {
	d := &recipe.Document{Metadata: recipe.Metadata{Title: title}}
	for _, name := range ingredients {
		d.Ingredients = append(d.Ingredients, recipe.Ingredient{Name: name, Quantity: recipe.Num(1)})
	}
	d.Steps = []recipe.Step{{Instruction: "Cook it."}}
	return d
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"recipes", "recipe_versions", "cooking_sessions", "import_cache"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestCreateRecipe_SlugSuffixes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	want := []string{"tomato-soup", "tomato-soup-1", "tomato-soup-2"}
	for _, w := range want {
		r, err := db.CreateRecipe(ctx, "alice", "Tomato Soup")
		if err != nil {
			t.Fatalf("CreateRecipe: %v", err)
		}
		if r.Slug != w {
			t.Errorf("slug = %q, want %q", r.Slug, w)
		}
	}

	// Slugs are scoped per owner.
	r, err := db.CreateRecipe(ctx, "bob", "Tomato Soup")
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	if r.Slug != "tomato-soup" {
		t.Errorf("bob's slug = %q", r.Slug)
	}

	r, err = db.CreateRecipe(ctx, "", "!!!")
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	if r.Slug != "recipe" {
		t.Errorf("fallback slug = %q", r.Slug)
	}
}

func TestCreateRecipe_RequiresName(t *testing.T) {
	db := testDB(t)
	if _, err := db.CreateRecipe(context.Background(), "", "   "); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestOwnerScoping(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if _, err := db.CreateRecipe(ctx, "alice", "Pancakes"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateRecipe(ctx, "", "Waffles"); err != nil {
		t.Fatal(err)
	}

	if _, err := db.GetRecipeBySlug(ctx, "bob", "pancakes"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("bob sees alice's recipe: %v", err)
	}
	if _, err := db.GetRecipeBySlug(ctx, "", "pancakes"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ownerless scope sees alice's recipe: %v", err)
	}
	if r, err := db.GetRecipeBySlug(ctx, "", "waffles"); err != nil || r.Owner != "" {
		t.Errorf("ownerless lookup = %+v, %v", r, err)
	}

	list, total, err := db.ListRecipes(ctx, "alice", 10, 0)
	if err != nil {
		t.Fatalf("ListRecipes: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Name != "Pancakes" {
		t.Errorf("alice's list = %+v (total %d)", list, total)
	}
}

func TestCreateVersion_NumbersAndSemver(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, _ := db.CreateRecipe(ctx, "", "Soup")

	v1, err := db.CreateVersion(ctx, r.ID, testDoc("Soup", "water"), VersionInput{CommitMessage: "Initial version"})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if v1.Number != 1 || v1.Semver != "1.0.0" || v1.ParentID != nil {
		t.Errorf("v1 = number %d semver %q parent %v", v1.Number, v1.Semver, v1.ParentID)
	}

	v2, err := db.CreateVersion(ctx, r.ID, testDoc("Soup", "water", "salt"), VersionInput{})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if v2.Number != 2 || v2.Semver != "1.0.1" {
		t.Errorf("v2 = number %d semver %q", v2.Number, v2.Semver)
	}
	if v2.ParentID == nil || *v2.ParentID != v1.ID {
		t.Errorf("v2 parent = %v, want %d", v2.ParentID, v1.ID)
	}

	v3, err := db.CreateVersion(ctx, r.ID, testDoc("Soup"), VersionInput{Semver: "2.0"})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if v3.Semver != "2.0.0" {
		t.Errorf("v3 semver = %q, want canonical 2.0.0", v3.Semver)
	}

	if _, err := db.CreateVersion(ctx, r.ID, testDoc("Soup"), VersionInput{Semver: "banana"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("invalid semver err = %v", err)
	}
}

func TestCreateVersion_StripsIdentity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, _ := db.CreateRecipe(ctx, "", "Soup")

	doc := testDoc("Soup", "water")
	doc.ID = "client-id"
	doc.Version = &recipe.VersionInfo{Number: "9.9.9"}
	v, err := db.CreateVersion(ctx, r.ID, doc, VersionInput{})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if v.Document.ID != "" || v.Document.Version != nil {
		t.Errorf("stored document kept identity: id=%q version=%+v", v.Document.ID, v.Document.Version)
	}
	if v.Title != "Soup" || v.Checksum == "" {
		t.Errorf("title=%q checksum=%q", v.Title, v.Checksum)
	}
}

func TestCreateVersion_Errors(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.CreateVersion(ctx, "missing", testDoc("X"), VersionInput{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing recipe err = %v", err)
	}

	r, _ := db.CreateRecipe(ctx, "", "Soup")
	if _, err := db.CreateVersion(ctx, r.ID, &recipe.Document{}, VersionInput{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("untitled document err = %v", err)
	}

	other, _ := db.CreateRecipe(ctx, "", "Other")
	ov, err := db.CreateVersion(ctx, other.ID, testDoc("Other"), VersionInput{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateVersion(ctx, r.ID, testDoc("Soup"), VersionInput{ParentID: &ov.ID}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("foreign parent err = %v", err)
	}
	missing := int64(9999)
	if _, err := db.CreateVersion(ctx, r.ID, testDoc("Soup"), VersionInput{ParentID: &missing}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("missing parent err = %v", err)
	}
}

func TestVersionNumberNeverReused(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, _ := db.CreateRecipe(ctx, "", "Bread")

	_, _ = db.CreateVersion(ctx, r.ID, testDoc("Bread"), VersionInput{})
	v2, _ := db.CreateVersion(ctx, r.ID, testDoc("Bread"), VersionInput{})
	if err := db.DeleteVersion(ctx, r.ID, v2.ID); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}

	v3, err := db.CreateVersion(ctx, r.ID, testDoc("Bread"), VersionInput{})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if v3.Number != 3 {
		t.Errorf("number after delete = %d, want 3", v3.Number)
	}
	latest, err := db.LatestVersion(ctx, r.ID)
	if err != nil {
		t.Fatalf("LatestVersion: %v", err)
	}
	if latest.ID != v3.ID {
		t.Errorf("latest = %d, want %d", latest.ID, v3.ID)
	}
}

func TestDeleteVersion_ChildrenKeepExisting(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, _ := db.CreateRecipe(ctx, "", "Stew")
	v1, _ := db.CreateVersion(ctx, r.ID, testDoc("Stew"), VersionInput{})
	v2, _ := db.CreateVersion(ctx, r.ID, testDoc("Stew"), VersionInput{})

	if err := db.DeleteVersion(ctx, r.ID, v1.ID); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	got, err := db.GetVersion(ctx, r.ID, v2.ID)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if got.ParentID != nil {
		t.Errorf("parent = %d, want nil after parent deletion", *got.ParentID)
	}
	if err := db.DeleteVersion(ctx, r.ID, v1.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestConcurrentCreateVersion_DistinctNumbers(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, _ := db.CreateRecipe(ctx, "", "Curry")

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[int64]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := db.CreateVersion(ctx, r.ID, testDoc(fmt.Sprintf("Curry %d", i)), VersionInput{})
			if err != nil {
				t.Errorf("CreateVersion: %v", err)
				return
			}
			mu.Lock()
			numbers[v.Number] = true
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	if len(numbers) != n {
		t.Errorf("distinct numbers = %d, want %d", len(numbers), n)
	}
	for i := int64(1); i <= n; i++ {
		if !numbers[i] {
			t.Errorf("number %d was never assigned", i)
		}
	}
}

func TestGetVersion_OtherRecipe(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, _ := db.CreateRecipe(ctx, "", "A")
	b, _ := db.CreateRecipe(ctx, "", "B")
	va, _ := db.CreateVersion(ctx, a.ID, testDoc("A"), VersionInput{})

	if _, err := db.GetVersion(ctx, b.ID, va.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-recipe GetVersion err = %v", err)
	}
	list, err := db.ListVersions(ctx, b.ID)
	if err != nil || len(list) != 0 {
		t.Errorf("ListVersions(b) = %v, %v", list, err)
	}
	if _, err := db.LatestVersion(ctx, b.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("LatestVersion without versions err = %v", err)
	}
}

func TestRenameAndDeleteRecipe(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, _ := db.CreateRecipe(ctx, "", "Soup")
	_, _ = db.CreateRecipe(ctx, "", "Stew")

	renamed, err := db.RenameRecipe(ctx, r.ID, "Stew")
	if err != nil {
		t.Fatalf("RenameRecipe: %v", err)
	}
	if renamed.Slug != "stew-1" {
		t.Errorf("renamed slug = %q", renamed.Slug)
	}

	v, _ := db.CreateVersion(ctx, r.ID, testDoc("Stew"), VersionInput{})
	if _, err := db.CreateSession(ctx, r.ID, v.ID, Session{}); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteRecipe(ctx, r.ID); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM recipe_versions WHERE recipe_id = ?`, r.ID).Scan(&n)
	if n != 0 {
		t.Errorf("versions left after delete: %d", n)
	}
	_ = db.conn.QueryRow(`SELECT count(*) FROM cooking_sessions`).Scan(&n)
	if n != 0 {
		t.Errorf("sessions left after delete: %d", n)
	}
	if err := db.DeleteRecipe(ctx, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestSearchRecipes_UsesLatestContent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, _ := db.CreateRecipe(ctx, "alice", "Weeknight Dinner")
	_, _ = db.CreateVersion(ctx, r.ID, testDoc("Weeknight Dinner", "chickpeas"), VersionInput{})

	res, err := db.SearchRecipes(ctx, "alice", "chickpeas", 10)
	if err != nil {
		t.Fatalf("SearchRecipes: %v", err)
	}
	if len(res) != 1 || res[0].Slug != "weeknight-dinner" {
		t.Fatalf("results = %+v", res)
	}

	if res, _ := db.SearchRecipes(ctx, "bob", "chickpeas", 10); len(res) != 0 {
		t.Errorf("bob found alice's recipe: %+v", res)
	}

	_, _ = db.CreateVersion(ctx, r.ID, testDoc("Weeknight Dinner", "lentils"), VersionInput{})
	if res, _ := db.SearchRecipes(ctx, "alice", "chickpeas", 10); len(res) != 0 {
		t.Errorf("stale content still matches: %+v", res)
	}
	if res, _ := db.SearchRecipes(ctx, "alice", "", 10); len(res) != 0 {
		t.Errorf("empty query matched: %+v", res)
	}
}

func TestCreateRecipeWithVersion(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	r, v, err := db.CreateRecipeWithVersion(ctx, "alice", "Focaccia", testDoc("Focaccia", "flour"),
		VersionInput{CommitMessage: "Initial version", Author: "alice"})
	if err != nil {
		t.Fatalf("CreateRecipeWithVersion: %v", err)
	}
	if v.Number != 1 || v.Semver != "1.0.0" || v.RecipeID != r.ID || r.LastVersionNumber != 1 {
		t.Errorf("recipe=%+v version number=%d semver=%q", r, v.Number, v.Semver)
	}

	// A rejected document rolls the recipe back too.
	if _, _, err := db.CreateRecipeWithVersion(ctx, "alice", "Broken", &recipe.Document{}, VersionInput{}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if _, err := db.GetRecipeBySlug(ctx, "alice", "broken"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("rejected recipe was stored: %v", err)
	}
}
