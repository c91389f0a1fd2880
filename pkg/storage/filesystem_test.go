package storage

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenAndCleanup(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("payroll/2025-03.csv", []byte("teacher_id,total_amount\n"))
	require.NoError(t, err)
	require.Equal(t, "payroll/2025-03.csv", rel)

	file, err := store.Open(rel)
	require.NoError(t, err)
	body, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	require.Equal(t, "teacher_id,total_amount\n", string(body))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	require.Empty(t, deleted)

	deleted, err = store.CleanupOlderThan(-time.Second)
	require.NoError(t, err)
	require.Equal(t, []string{"payroll/2025-03.csv"}, deleted)
}

func TestLocalStorageKeepsPathsInsideBaseDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("../../escape.csv", []byte("x"))
	require.NoError(t, err)

	file, err := store.Open("escape.csv")
	require.NoError(t, err)
	require.NoError(t, file.Close())
}
