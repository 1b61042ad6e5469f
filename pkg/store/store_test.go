/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store_test.go
Description: Tests for the SQLite model store.
*/

package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kleascm/bayesnet/pkg/factor"
	"github.com/kleascm/bayesnet/pkg/network"
	"github.com/kleascm/bayesnet/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoNode(t *testing.T) *network.Network {
	t.Helper()
	a := factor.MustVariable("A", "0", "1")
	b := factor.MustVariable("B", "0", "1")
	pa, err := factor.NewCPDFromColumns(a, nil, [][]float64{{0.6, 0.4}})
	require.NoError(t, err)
	pb, err := factor.NewCPDFromColumns(b, []factor.Variable{a}, [][]float64{{0.9, 0.1}, {0.3, 0.7}})
	require.NoError(t, err)
	net, err := network.Build([]factor.Variable{a, b}, []network.Edge{{Parent: "A", Child: "B"}}, []*factor.CPD{pa, pb})
	require.NoError(t, err)
	return net
}

func TestSaveLoadListDelete(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "nested", "models.db"))
	require.NoError(t, err)
	defer s.Close()

	net := twoNode(t)
	first, err := s.Save(ctx, "ab", net)
	require.NoError(t, err)
	assert.Len(t, first.ID, 36)
	assert.Equal(t, 2, first.Variables)

	second, err := s.Save(ctx, "ab", net)
	require.NoError(t, err)

	loaded, rec, err := s.Load(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, rec.ID)
	assert.Equal(t, net.Names(), loaded.Names())
	cpd, err := loaded.CPD("B")
	require.NoError(t, err)
	original, err := net.CPD("B")
	require.NoError(t, err)
	assert.True(t, original.Factor().ApproxEqual(cpd.Factor(), 0))

	_, rec, err = s.Load(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, second.ID, rec.ID, "names resolve to the newest model")

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID)

	require.NoError(t, s.Delete(ctx, first.ID))
	assert.ErrorIs(t, s.Delete(ctx, first.ID), store.ErrNotFound)
	_, _, err = s.Load(ctx, first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReopenKeepsModels(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "models.db")

	s, err := store.Open(path)
	require.NoError(t, err)
	rec, err := s.Save(ctx, "ab", twoNode(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := store.Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	_, loaded, err := reopened.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "ab", loaded.Name)
	assert.True(t, rec.CreatedAt.Equal(loaded.CreatedAt))
}
