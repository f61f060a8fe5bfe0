package storage

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/arcade-neuroevo/nn"
)

func newTestRecord(t *testing.T, runID, kind string, seed int64) (Record, *nn.Network) {
	t.Helper()
	net, err := nn.New(nn.Topology{Inputs: 5, Hidden: []int{4}, Outputs: 2, Activation: "sigmoid"}, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return Record{
		RunID:      runID,
		Kind:       kind,
		Generation: 7,
		Fitness:    123.5,
		Network:    net.Snapshot(),
		SavedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}, net
}

// assertSameBehaviour checks the restored record evaluates exactly like the original network.
func assertSameBehaviour(t *testing.T, want *nn.Network, got Record) {
	t.Helper()
	restored, err := nn.FromSnapshot(got.Network)
	require.NoError(t, err)
	require.True(t, restored.Equal(want))

	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 20; i++ {
		x := make([]float64, want.Topology.Inputs)
		for j := range x {
			x[j] = rng.Float64()*100 - 50
		}
		a, err := want.Evaluate(x)
		require.NoError(t, err)
		b, err := restored.Evaluate(x)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	record, net := newTestRecord(t, "run", KindChampion, 1)
	data, err := EncodeRecord(record)
	require.NoError(t, err)

	decoded, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record.RunID, decoded.RunID)
	assert.Equal(t, record.Generation, decoded.Generation)
	assert.Equal(t, record.Fitness, decoded.Fitness)
	assert.True(t, record.SavedAt.Equal(decoded.SavedAt))
	assertSameBehaviour(t, net, decoded)

	_, err = DecodeRecord([]byte("not gzip"))
	assert.Error(t, err)
}

func TestRecordFileRoundTrip(t *testing.T) {
	record, net := newTestRecord(t, "run", KindLast, 2)
	path := filepath.Join(t.TempDir(), "net.gob.gz")
	require.NoError(t, WriteRecordFile(path, record))

	loaded, err := ReadRecordFile(path)
	require.NoError(t, err)
	assertSameBehaviour(t, net, loaded)

	_, err = ReadRecordFile(filepath.Join(t.TempDir(), "missing.gob.gz"))
	assert.Error(t, err)
}

func TestStoresRoundTripAndReplace(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(dir, "files")),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "champions.db")),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Init(ctx))
			t.Cleanup(func() { _ = store.Close() })

			_, ok, err := store.GetNetwork(ctx, "run", KindChampion)
			require.NoError(t, err)
			assert.False(t, ok)

			first, _ := newTestRecord(t, "run", KindChampion, 3)
			require.NoError(t, store.SaveNetwork(ctx, first))

			second, secondNet := newTestRecord(t, "run", KindChampion, 4)
			second.Generation = 9
			second.Fitness = 200
			require.NoError(t, store.SaveNetwork(ctx, second))

			got, ok, err := store.GetNetwork(ctx, "run", KindChampion)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 9, got.Generation)
			assert.Equal(t, 200.0, got.Fitness)
			assertSameBehaviour(t, secondNet, got)

			_, ok, err = store.GetNetwork(ctx, "run", KindLast)
			require.NoError(t, err)
			assert.False(t, ok)

			assert.Error(t, store.SaveNetwork(ctx, Record{Kind: KindChampion}))
		})
	}
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	record, _ := newTestRecord(t, "run", KindChampion, 5)
	require.NoError(t, store.SaveNetwork(ctx, record))
	record.Network.Weights[0][0] = 42

	got, ok, err := store.GetNetwork(ctx, "run", KindChampion)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, 42.0, got.Network.Weights[0][0])
}

func TestUninitializedStoresFail(t *testing.T) {
	ctx := context.Background()
	record, _ := newTestRecord(t, "run", KindChampion, 6)

	assert.Error(t, NewMemoryStore().SaveNetwork(ctx, record))
	assert.Error(t, NewSQLiteStore(filepath.Join(t.TempDir(), "x.db")).SaveNetwork(ctx, record))
	assert.Error(t, NewSQLiteStore("").Init(ctx))
	assert.Error(t, NewFileStore("").Init(ctx))
}

func TestNewStore(t *testing.T) {
	for _, kind := range []string{"", "memory", "file", "sqlite"} {
		store, err := NewStore(kind, t.TempDir())
		require.NoError(t, err, kind)
		assert.NotNil(t, store)
	}
	_, err := NewStore("unknown", "")
	assert.Error(t, err)
}
