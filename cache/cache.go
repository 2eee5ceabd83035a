// Package cache hält abgeleitete, kurzlebige Daten wie Artikellisten und Zähler.
//
// Jeder Schreibzugriff auf Artikeldaten ruft Flush auf und leert den gesamten
// Namensraum. Delete verwirft einzelne Schlüssel, ersetzt den Flush aber nicht.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Store ist ein Key/Value-Speicher mit TTL.
type Store interface {
	// Get liefert found=false, wenn der Schlüssel fehlt oder abgelaufen ist.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Flush entfernt alle Einträge dieses Stores.
	Flush(ctx context.Context) error
}

// Remember liefert den gecachten Wert unter key oder berechnet ihn mit fn und legt ihn ab.
// hit meldet, ob der Wert aus dem Cache kam.
func Remember[T any](ctx context.Context, store Store, key string, ttl time.Duration, fn func() (T, error)) (value T, hit bool, err error) {
	raw, found, err := store.Get(ctx, key)
	if err != nil {
		return value, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if found {
		if err := json.Unmarshal(raw, &value); err == nil {
			return value, true, nil
		}
		// kaputter Eintrag: neu berechnen und überschreiben
	}

	value, err = fn()
	if err != nil {
		return value, false, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return value, false, fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, encoded, ttl); err != nil {
		return value, false, fmt.Errorf("cache set %s: %w", key, err)
	}
	return value, false, nil
}
