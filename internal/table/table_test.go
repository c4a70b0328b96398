package table

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/graphdb/internal/catalog"
	"github.com/tuannm99/graphdb/internal/value"
)

func personSchema() *catalog.NodeTableSchema {
	return &catalog.NodeTableSchema{
		Name: "Person",
		Columns: []catalog.ColumnDef{
			{Name: "id", Type: value.KindInt64},
			{Name: "name", Type: value.KindString},
		},
		PrimaryKey: []string{"id"},
	}
}

func TestNodeTableInsertAndScan(t *testing.T) {
	nt := NewNodeTable(personSchema())
	id1, err := nt.Insert(map[string]value.Value{"id": value.Int64(1), "name": value.String("Alice")})
	require.NoError(t, err)
	require.Equal(t, RowId(0), id1)

	id2, err := nt.Insert(map[string]value.Value{"id": value.Int64(2), "name": value.String("Bob")})
	require.NoError(t, err)
	require.Equal(t, RowId(1), id2)

	require.Equal(t, 2, nt.NumRows())

	var names []string
	nt.Scan(func(r Row) bool {
		names = append(names, r.Get(1).AsString())
		return true
	})
	require.Equal(t, []string{"Alice", "Bob"}, names)
}

func TestNodeTableDuplicatePKFailsAndLeavesTableUnchanged(t *testing.T) {
	nt := NewNodeTable(personSchema())
	_, err := nt.Insert(map[string]value.Value{"id": value.Int64(1), "name": value.String("Alice")})
	require.NoError(t, err)

	_, err = nt.Insert(map[string]value.Value{"id": value.Int64(1), "name": value.String("Eve")})
	require.ErrorIs(t, err, ErrPKDuplicate)
	require.Equal(t, 1, nt.NumRows())
}

func TestNodeTablePKNullRejectedAtInsert(t *testing.T) {
	nt := NewNodeTable(personSchema())
	_, err := nt.Insert(map[string]value.Value{"name": value.String("Alice")})
	require.ErrorIs(t, err, ErrPKNull)
	require.Equal(t, 0, nt.NumRows())
}

func TestNodeTableLookupByPK(t *testing.T) {
	nt := NewNodeTable(personSchema())
	id, err := nt.Insert(map[string]value.Value{"id": value.Int64(42), "name": value.String("Alice")})
	require.NoError(t, err)

	got, ok := nt.LookupByPK([]value.Value{value.Int64(42)})
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok = nt.LookupByPK([]value.Value{value.Int64(7)})
	require.False(t, ok)
}

func TestNodeTableTypeMismatchRejected(t *testing.T) {
	nt := NewNodeTable(personSchema())
	_, err := nt.Insert(map[string]value.Value{"id": value.String("not-an-int"), "name": value.String("x")})
	require.Error(t, err)
	require.Equal(t, 0, nt.NumRows())
}

func TestRelTableInsertValidatesEndpoints(t *testing.T) {
	people := NewNodeTable(personSchema())
	alice, _ := people.Insert(map[string]value.Value{"id": value.Int64(1), "name": value.String("Alice")})
	bob, _ := people.Insert(map[string]value.Value{"id": value.Int64(2), "name": value.String("Bob")})

	relSchema := &catalog.RelTableSchema{
		Name:     "Knows",
		SrcTable: "Person",
		DstTable: "Person",
		Columns:  []catalog.ColumnDef{{Name: "since", Type: value.KindInt64}},
	}
	rt := NewRelTable(relSchema)

	_, err := rt.Insert(people, people, alice, bob, map[string]value.Value{"since": value.Int64(2020)})
	require.NoError(t, err)
	require.Equal(t, 1, rt.NumRows())

	_, err = rt.Insert(people, people, alice, RowId(99), map[string]value.Value{"since": value.Int64(2020)})
	require.ErrorIs(t, err, ErrEndpointNotFound)
	require.Equal(t, 1, rt.NumRows())
}

func TestRelTableScan(t *testing.T) {
	people := NewNodeTable(personSchema())
	alice, _ := people.Insert(map[string]value.Value{"id": value.Int64(1), "name": value.String("Alice")})
	bob, _ := people.Insert(map[string]value.Value{"id": value.Int64(2), "name": value.String("Bob")})

	relSchema := &catalog.RelTableSchema{Name: "Knows", SrcTable: "Person", DstTable: "Person",
		Columns: []catalog.ColumnDef{{Name: "since", Type: value.KindInt64}}}
	rt := NewRelTable(relSchema)
	_, err := rt.Insert(people, people, alice, bob, map[string]value.Value{"since": value.Int64(2020)})
	require.NoError(t, err)

	var got []RowId
	rt.Scan(func(r RelRow) bool {
		got = append(got, r.Src, r.Dst)
		return true
	})
	require.Equal(t, []RowId{alice, bob}, got)
}
