package dynacodec_test

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisimpson/dynacodec"
)

const queryResponse = `{
  "ConsumedCapacity": {"TableName": "accounts", "CapacityUnits": 1.5},
  "Count": 2,
  "Items": [
    {"pk": {"S": "a1"}, "sk": {"S": "eu"}, "version": {"N": "2"}, "tags": {"SS": ["vip"]}},
    {"pk": {"S": "a1"}, "sk": {"S": "us"}, "version": {"N": "1"}, "legacy": {"M": {"x": {"L": []}}}}
  ],
  "LastEvaluatedKey": {"pk": {"S": "a1"}, "sk": {"S": "us"}},
  "ScannedCount": 5
}`

func TestDecodePage(t *testing.T) {
	page, err := dynacodec.DecodePage[Account](strings.NewReader(queryResponse))
	require.NoError(t, err)

	assert.Equal(t, int64(2), page.Count)
	assert.Equal(t, int64(5), page.ScannedCount)
	assert.Equal(t, dynacodec.Item{
		"pk": &types.AttributeValueMemberS{Value: "a1"},
		"sk": &types.AttributeValueMemberS{Value: "us"},
	}, page.LastEvaluatedKey)
	assert.Equal(t, []Account{
		{ID: "a1", Region: "eu", Version: 2, Tags: map[string]struct{}{"vip": {}}},
		{ID: "a1", Region: "us", Version: 1},
	}, page.Items)
}

func TestDecodePageEmpty(t *testing.T) {
	page, err := dynacodec.DecodePage[Account](strings.NewReader(`{"Count":0,"Items":[],"ScannedCount":0}`))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.LastEvaluatedKey)

	page, err = dynacodec.DecodePage[Account](strings.NewReader(`{"Items":null,"LastEvaluatedKey":null}`))
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.LastEvaluatedKey)
}

func TestDecodePagePointers(t *testing.T) {
	var notes []*Note
	info, err := dynacodec.DefaultStore().DecodePage(strings.NewReader(`{"Items":[{"id":{"S":"n1"},"body":{"S":"hi"}}],"Count":1}`), &notes)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Count)
	require.Len(t, notes, 1)
	assert.Equal(t, &Note{ID: "n1", Body: "hi"}, notes[0])
}

func TestDecodePageErrors(t *testing.T) {
	s := dynacodec.NewStore()

	var notNotes Note
	_, err := s.DecodePage(strings.NewReader(`{}`), &notNotes)
	assert.ErrorIs(t, err, dynacodec.ErrInvalidTarget)

	var notes []Note
	_, err = s.DecodePage(strings.NewReader(`{"Items":[{"id":{"N":"1"}}]}`), &notes)
	var convErr *dynacodec.ConversionError
	assert.ErrorAs(t, err, &convErr)

	_, err = s.DecodePage(strings.NewReader(`{"Items":[{"id":{"S":"n1"}}`), &notes)
	assert.ErrorIs(t, err, dynacodec.ErrMalformedWire)
	assert.Nil(t, notes)
}

func TestDecodeGetItem(t *testing.T) {
	var note Note
	found, err := dynacodec.DecodeGetItem(strings.NewReader(`{"ConsumedCapacity":null,"Item":{"id":{"S":"n1"},"body":{"S":"hi"}}}`), &note)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, Note{ID: "n1", Body: "hi"}, note)

	for _, body := range []string{`{}`, `{"Item":null}`} {
		kept := Note{ID: "kept"}
		found, err := dynacodec.DecodeGetItem(strings.NewReader(body), &kept)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, Note{ID: "kept"}, kept)
	}
}
