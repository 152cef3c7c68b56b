package cache

import (
	"encoding/json"
	"time"

	"marketsync/internal/logger"
	"marketsync/internal/series"
)

// Typed accessors over the byte store. A stored kind that does not
// match the accessor, like any other deserialization problem, reads as
// a miss.

func (s *Store) SetSeries(key string, ser *series.Series, ttl time.Duration) bool {
	data, err := series.EncodeCSV(ser)
	if err != nil {
		logger.Errorf("cache: encode series %s: %v", key, err)
		return false
	}
	return s.SetBytes(key, KindTabular, data, ttl)
}

func (s *Store) GetSeries(key string) (*series.Series, bool) {
	data, kind, ok := s.GetBytes(key)
	if !ok || kind != KindTabular {
		return nil, false
	}
	ser, err := series.DecodeCSV(data)
	if err != nil {
		logger.Errorf("cache: decode series %s: %v", key, err)
		return nil, false
	}
	return ser, true
}

func (s *Store) SetJSON(key string, v any, ttl time.Duration) bool {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("cache: encode json %s: %v", key, err)
		return false
	}
	return s.SetBytes(key, KindStructured, data, ttl)
}

func (s *Store) GetJSON(key string, v any) bool {
	data, kind, ok := s.GetBytes(key)
	if !ok || kind != KindStructured {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Errorf("cache: decode json %s: %v", key, err)
		return false
	}
	return true
}

func (s *Store) SetOpaque(key string, payload []byte, ttl time.Duration) bool {
	return s.SetBytes(key, KindOpaque, payload, ttl)
}

func (s *Store) GetOpaque(key string) ([]byte, bool) {
	data, kind, ok := s.GetBytes(key)
	if !ok || kind != KindOpaque {
		return nil, false
	}
	return data, true
}
