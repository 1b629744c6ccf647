package aggregation

import (
	"math/rand"
	"streamwatch/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sample(ch string, viewers int, live bool, at time.Time) models.Sample {
	return models.Sample{ChannelID: ch, ViewersCount: viewers, IsLive: live, Timestamp: at}
}

func TestResolve_Empty(t *testing.T) {
	latest := Resolve(nil)
	assert.NotNil(t, latest)
	assert.Empty(t, latest)
}

func TestResolve_ScenarioA(t *testing.T) {
	t1 := t0.Add(time.Minute)
	latest := Resolve([]models.Sample{
		sample("c1", 10, true, t0),
		sample("c1", 15, true, t1),
		sample("c2", 0, false, t0),
	})

	require.Len(t, latest, 2)
	assert.Equal(t, sample("c1", 15, true, t1), latest["c1"])
	assert.Equal(t, sample("c2", 0, false, t0), latest["c2"])
}

func TestResolve_UnsortedInput(t *testing.T) {
	latest := Resolve([]models.Sample{
		sample("c1", 30, true, t0.Add(2*time.Minute)),
		sample("c1", 10, true, t0),
		sample("c1", 20, true, t0.Add(time.Minute)),
	})
	assert.Equal(t, 30, latest["c1"].ViewersCount)
}

func TestResolve_TieKeepsLastEncountered(t *testing.T) {
	latest := Resolve([]models.Sample{
		sample("c1", 10, true, t0),
		sample("c1", 20, true, t0),
	})
	assert.Equal(t, 20, latest["c1"].ViewersCount)

	latest = Resolve([]models.Sample{
		sample("c1", 20, true, t0),
		sample("c1", 10, true, t0),
	})
	assert.Equal(t, 10, latest["c1"].ViewersCount)
}

func TestResolve_AbsentChannelHasNoEntry(t *testing.T) {
	latest := Resolve([]models.Sample{sample("c1", 1, true, t0)})
	_, ok := latest["c2"]
	assert.False(t, ok)
}

func TestResolve_OrderIndependentWithoutTies(t *testing.T) {
	var samples []models.Sample
	for i := 0; i < 50; i++ {
		ch := []string{"a", "b", "c"}[i%3]
		samples = append(samples, sample(ch, i, i%2 == 0, t0.Add(time.Duration(i)*time.Second)))
	}
	want := Resolve(samples)

	rnd := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		shuffled := append([]models.Sample(nil), samples...)
		rnd.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, Resolve(shuffled))
	}
}
