package rabbitmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbqa/internal/model"
)

func TestTurnBatchCodec(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	batch := model.TurnBatch{
		SessionID:  "s1",
		Turns:      []model.Turn{{Role: model.RoleUser, Content: "q"}, {Role: model.RoleAssistant, Content: "a"}},
		AnsweredAt: at,
	}

	payload, err := EncodeTurnBatch(batch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s1","turns":[{"role":"user","content":"q"},{"role":"assistant","content":"a"}],"answered_at":"2025-03-01T12:00:00Z"}`, string(payload))

	decoded, err := DecodeTurnBatch(payload)
	require.NoError(t, err)
	assert.Equal(t, batch, decoded)
}

func TestDecodeTurnBatch_Rejects(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   `{"session_id":`,
		"no session": `{"turns":[{"role":"user","content":"q"}]}`,
		"no turns":   `{"session_id":"s1","turns":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeTurnBatch([]byte(body))
			assert.Error(t, err)
		})
	}
}
