package directory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/sd/internal/store"
)

func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	return New(newTestStore(t), nil)
}

func TestCreateAPI_RoundTrip(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.CreateAPI(ctx, "foo"))

	info, err := d.ShowAPI(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, "foo", info.Label)
	assert.Empty(t, info.Methods)
	assert.Empty(t, info.Services)

	require.NoError(t, d.DeleteAPI(ctx, "foo"))

	_, err = d.ShowAPI(ctx, "foo")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "API", nf.Kind)
	assert.Equal(t, "foo", nf.Name)
}

func TestCreateAPI_Duplicate(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.CreateAPI(ctx, "gamma"))

	err := d.CreateAPI(ctx, "gamma")
	assert.EqualError(t, err, "API gamma already exists.")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDeleteAPI_TwiceIsNotFoundBothTimes(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.CreateAPI(ctx, "once"))
	require.NoError(t, d.DeleteAPI(ctx, "once"))

	for i := 0; i < 2; i++ {
		err := d.DeleteAPI(ctx, "once")
		assert.ErrorIs(t, err, ErrNotFound, "attempt %d", i+1)
	}
}

func TestCreateService(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.CreateAPI(ctx, "storage"))
	require.NoError(t, d.CreateService(ctx, "swift", "object-store", "storage", "http://swift.local:8080"))

	svc, err := d.ShowService(ctx, "swift")
	require.NoError(t, err)
	assert.Equal(t, &ServiceInfo{
		Label:       "swift",
		ServiceType: "object-store",
		Endpoint:    "http://swift.local:8080",
		APIs:        []string{"storage"},
	}, svc)

	api, err := d.ShowAPI(ctx, "storage")
	require.NoError(t, err)
	assert.Equal(t, []string{"swift"}, api.Services)

	services, err := d.ListServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"swift"}, services)
}

func TestCreateService_MissingAPIPersistsNothing(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	err := d.CreateService(ctx, "svc1", "rest", "missing-api", "http://svc1")
	assert.EqualError(t, err, "API missing-api does not exist.")
	assert.ErrorIs(t, err, ErrNotFound)

	services, err := d.ListServices(ctx)
	require.NoError(t, err)
	assert.Empty(t, services)

	_, err = d.ShowService(ctx, "svc1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateService_Duplicate(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.CreateAPI(ctx, "a"))
	require.NoError(t, d.CreateService(ctx, "svc", "rest", "a", "http://one"))

	err := d.CreateService(ctx, "svc", "rest", "a", "http://two")
	assert.EqualError(t, err, "Service svc already exists.")

	svc, err := d.ShowService(ctx, "svc")
	require.NoError(t, err)
	assert.Equal(t, "http://one", svc.Endpoint)
}

func TestCreateService_DuplicateCheckedBeforeAPI(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.CreateAPI(ctx, "a"))
	require.NoError(t, d.CreateService(ctx, "svc", "rest", "a", "http://one"))

	// The service guard runs first, so a conflict wins over a missing api
	err := d.CreateService(ctx, "svc", "rest", "nope", "http://two")
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestDeleteService(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.CreateAPI(ctx, "a"))
	require.NoError(t, d.CreateService(ctx, "svc", "rest", "a", "http://one"))
	require.NoError(t, d.DeleteService(ctx, "svc"))

	err := d.DeleteService(ctx, "svc")
	assert.EqualError(t, err, "Service svc does not exist.")

	// The API survives its implementing service
	api, err := d.ShowAPI(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, api.Services)
}

func TestMethods(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.CreateAPI(ctx, "o1"))
	require.NoError(t, d.CreateAPI(ctx, "o2"))
	require.NoError(t, d.CreateMethod(ctx, "o1", "x"))
	require.NoError(t, d.CreateMethod(ctx, "o2", "x"))

	err := d.CreateMethod(ctx, "o1", "x")
	assert.EqualError(t, err, "Method x on API o1 already exists.")

	err = d.CreateMethod(ctx, "o3", "x")
	assert.EqualError(t, err, "API o3 does not exist.")

	require.NoError(t, d.DeleteMethod(ctx, "o1", "x"))
	err = d.DeleteMethod(ctx, "o1", "x")
	assert.EqualError(t, err, "Method x on API o1 does not exist.")

	o2, err := d.ShowAPI(ctx, "o2")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, o2.Methods)
}

func TestDeleteAPI_RemovesMethods(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	require.NoError(t, d.CreateAPI(ctx, "a"))
	require.NoError(t, d.CreateMethod(ctx, "a", "get"))
	require.NoError(t, d.DeleteAPI(ctx, "a"))
	require.NoError(t, d.CreateAPI(ctx, "a"))

	// Recreated API starts without the old methods
	require.NoError(t, d.CreateMethod(ctx, "a", "get"))
}

func TestListAPIs(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	empty, err := d.ListAPIs(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, name := range []string{"b", "c", "a"} {
		require.NoError(t, d.CreateAPI(ctx, name))
	}

	apis, err := d.ListAPIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, apis)
}

func TestBadArguments(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		argument string
	}{
		{"empty api", func() error { return d.CreateAPI(ctx, "") }, "api"},
		{"empty delete", func() error { return d.DeleteAPI(ctx, "") }, "api"},
		{"empty service type", func() error { return d.CreateService(ctx, "s", "", "a", "http://e") }, "service_type"},
		{"empty endpoint", func() error { return d.CreateService(ctx, "s", "rest", "a", "") }, "endpoint"},
		{"empty method", func() error { return d.CreateMethod(ctx, "a", "") }, "method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var bad *BadArgumentError
			require.ErrorAs(t, err, &bad)
			assert.Equal(t, tt.argument, bad.Argument)
			assert.ErrorIs(t, err, ErrBadArgument)
		})
	}
}

// raceStore reports a uniqueness violation at commit, as when a concurrent
// create commits the same label between our guard and our commit.
type raceStore struct{}

func (raceStore) WithTx(context.Context, func(tx *store.Tx) error) error {
	return store.ErrDuplicate
}

func TestCreate_RaceSurfacesAsDuplicate(t *testing.T) {
	d := New(raceStore{}, nil)
	ctx := context.Background()

	err := d.CreateAPI(ctx, "raced")
	assert.EqualError(t, err, "API raced already exists.")

	err = d.CreateService(ctx, "raced", "rest", "a", "http://e")
	assert.EqualError(t, err, "Service raced already exists.")

	err = d.CreateMethod(ctx, "a", "raced")
	assert.EqualError(t, err, "Method raced on API a already exists.")
}

func TestConflict_PassesOtherErrors(t *testing.T) {
	errOther := errors.New("other")
	dup := &DuplicateError{Kind: "API", Name: "x"}

	assert.Nil(t, conflict(nil, dup))
	assert.Equal(t, errOther, conflict(errOther, dup))
	assert.Equal(t, dup, conflict(store.ErrDuplicate, dup))
}

// TestCreateAPI_RacingStoresOnOneFile runs concurrent creates of one label
// through separate store handles, as separate sd processes would. Exactly one
// wins and every other caller sees a DuplicateError.
func TestCreateAPI_RacingStoresOnOneFile(t *testing.T) {
	const (
		handles = 6
		rounds  = 10
	)

	path := filepath.Join(t.TempDir(), "shared.db")
	dirs := make([]*Directory, handles)
	for i := range dirs {
		s, err := store.NewSQLiteStore(store.DriverSQLite, path)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		if i == 0 {
			require.NoError(t, s.Migrate())
		}
		dirs[i] = New(s, nil)
	}

	ctx := context.Background()
	for round := 0; round < rounds; round++ {
		label := fmt.Sprintf("api-%d", round)

		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make([]error, handles)
		)
		for i, d := range dirs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				errs[i] = d.CreateAPI(ctx, label)
			}()
		}
		close(start)
		wg.Wait()

		var created int
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			var dup *DuplicateError
			assert.True(t, errors.As(err, &dup), "round %d: losing create should be a DuplicateError, got %v", round, err)
		}
		assert.Equal(t, 1, created, "round %d: exactly one create should win", round)
	}
}
