package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetBondingProgress(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		in            float64
		wantProgress  float64
		wantGraduated bool
	}{
		{"negative clamps to zero", -5, 0, false},
		{"within range", 42.5, 42.5, false},
		{"just short of full stays on the curve", 99.99, 99.99, false},
		{"exactly full graduates", 100, 100, true},
		{"above range clamps and graduates", 130, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec TokenLaunch
			rec.SetBondingProgress(tt.in, now)
			assert.Equal(t, tt.wantProgress, rec.BondingProgress)
			assert.Equal(t, tt.wantGraduated, rec.Graduated)
			assert.Equal(t, tt.wantGraduated, rec.GraduatedAt != nil)
		})
	}
}

func TestGraduatedAtSetOnce(t *testing.T) {
	first := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var rec TokenLaunch

	rec.Graduate(first)
	rec.SetBondingProgress(100, first.Add(time.Hour))
	require.NotNil(t, rec.GraduatedAt)
	assert.Equal(t, first, *rec.GraduatedAt)
}

func TestApplyMarketComplete(t *testing.T) {
	var rec TokenLaunch
	rec.ApplyMarket(MarketUpdate{CurrentPrice: 1e-8, MarketCap: 10, BondingProgress: 99.9, Complete: true}, time.Now())

	assert.True(t, rec.Graduated)
	assert.Equal(t, float64(100), rec.BondingProgress)
	assert.Equal(t, float64(10), rec.MarketCap)
}
