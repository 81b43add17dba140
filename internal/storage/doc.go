package storage

// Package storage is the persistent task store: the single owner of the
// pending reminder and stock-alert collections.
//
// Both collections are replaced whole on every write so the on-disk state
// always mirrors the last in-memory snapshot (alerts are removed from the
// middle of the set when they fire). A missing or corrupt backing file
// loads as an empty collection; the service must start cleanly on first
// run and must never be taken down by legacy state.
