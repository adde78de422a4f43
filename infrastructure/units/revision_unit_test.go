package units

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/domain"
	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

var sampleCorrections = []domain.Correction{
	{Original: "Founded in 1977.", Corrected: "Founded in 1976.", Reasoning: "Wrong year."},
}

func TestRevisionUnit_Revise(t *testing.T) {
	client := newFakeClient("Apple was founded in 1976.")
	unit, err := NewRevisionUnit("reviser", client, stubPrompts{}, DefaultRevisionConfig())
	require.NoError(t, err)

	text, err := unit.Revise(context.Background(), "Apple", domain.TopicHistory, "Founded in 1977.", sampleCorrections)

	require.NoError(t, err)
	assert.Equal(t, "Apple was founded in 1976.", text)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, OperationRevise, calls[0].operation)
	assert.Equal(t, "revise History for Apple with 1 corrections: Founded in 1977.", calls[0].prompt)
	assert.False(t, calls[0].params.WebSearch, "revisions never search")
	assert.Equal(t, ports.ResponseFormatText, calls[0].params.Format)
	require.NotNil(t, calls[0].params.Temperature)
	assert.Equal(t, DefaultTemperature, *calls[0].params.Temperature)
}

func TestRevisionUnit_NoCorrections(t *testing.T) {
	client := newFakeClient("x")
	unit, err := NewRevisionUnit("reviser", client, stubPrompts{}, DefaultRevisionConfig())
	require.NoError(t, err)

	_, err = unit.Revise(context.Background(), "Apple", domain.TopicHistory, "draft", nil)

	assert.ErrorIs(t, err, ErrNoCorrections)
	assert.Empty(t, client.Calls())
}

func TestRevisionUnit_ClientError(t *testing.T) {
	client := newFakeClient()
	client.err = errors.New("server error")
	unit, err := NewRevisionUnit("reviser", client, stubPrompts{}, DefaultRevisionConfig())
	require.NoError(t, err)

	_, err = unit.Revise(context.Background(), "Apple", domain.TopicStockDrivers, "draft", sampleCorrections)

	require.Error(t, err)
	assert.ErrorIs(t, err, client.err)
	assert.Contains(t, err.Error(), "Stock Drivers")
}

func TestRevisionUnit_InvalidConfig(t *testing.T) {
	config := DefaultRevisionConfig()
	topP := 1.5
	config.TopP = &topP

	_, err := NewRevisionUnit("reviser", newFakeClient(), stubPrompts{}, config)

	assert.Error(t, err)
}
