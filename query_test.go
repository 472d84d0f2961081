package dynacodec_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nisimpson/dynacodec"
	"github.com/nisimpson/dynacodec/dynamock"
)

func TestTableMarshalQuery(t *testing.T) {
	table := dynacodec.NewTable("")

	t.Run("partition only", func(t *testing.T) {
		input, err := table.MarshalQuery(&dynacodec.Query{Partition: &Account{ID: "a1"}})
		require.NoError(t, err)
		assert.Equal(t, "accounts", aws.ToString(input.TableName))
		assert.Equal(t, "#0 = :0", aws.ToString(input.KeyConditionExpression))
		assert.Equal(t, map[string]string{"#0": "pk"}, input.ExpressionAttributeNames)
		assert.Equal(t, map[string]types.AttributeValue{
			":0": &types.AttributeValueMemberS{Value: "a1"},
		}, input.ExpressionAttributeValues)
		assert.True(t, aws.ToBool(input.ScanIndexForward))
		assert.Nil(t, input.FilterExpression)
		assert.Nil(t, input.IndexName)
		assert.Nil(t, input.Limit)
		assert.Nil(t, input.ExclusiveStartKey)
	})

	t.Run("all options", func(t *testing.T) {
		sk, err := table.SortKey(Account{})
		require.NoError(t, err)
		startKey := dynacodec.Item{
			"pk": &types.AttributeValueMemberS{Value: "a1"},
			"sk": &types.AttributeValueMemberS{Value: "us-east-1"},
		}

		input, err := table.MarshalQuery(&dynacodec.Query{
			Partition:       Account{ID: "a1"},
			SortCondition:   sk.BeginsWith("us-"),
			ConditionFilter: expression.Name("owner").Equal(expression.Value("ada")),
			IndexName:       "by-region",
			Limit:           10,
			StartKey:        startKey,
			SortDescending:  true,
		})
		require.NoError(t, err)

		names := []string{}
		for _, name := range input.ExpressionAttributeNames {
			names = append(names, name)
		}
		assert.ElementsMatch(t, []string{"pk", "sk", "owner"}, names)
		assert.Len(t, input.ExpressionAttributeValues, 3)
		assert.NotNil(t, input.FilterExpression)
		assert.Contains(t, aws.ToString(input.KeyConditionExpression), "begins_with")
		assert.Equal(t, "by-region", aws.ToString(input.IndexName))
		assert.Equal(t, int32(10), aws.ToInt32(input.Limit))
		assert.False(t, aws.ToBool(input.ScanIndexForward))
		assert.Equal(t, startKey, input.ExclusiveStartKey)
	})

	t.Run("table override", func(t *testing.T) {
		input, err := dynacodec.NewTable("notes").MarshalQuery(&dynacodec.Query{Partition: Note{ID: "n1"}})
		require.NoError(t, err)
		assert.Equal(t, "notes", aws.ToString(input.TableName))
		assert.Equal(t, map[string]string{"#0": "id"}, input.ExpressionAttributeNames)
	})

	t.Run("no sort key", func(t *testing.T) {
		_, err := dynacodec.NewTable("notes").SortKey(Note{})
		var cfgErr *dynacodec.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("no partition key", func(t *testing.T) {
		_, err := dynacodec.NewTable("things").MarshalQuery(&dynacodec.Query{Partition: Keyless{}})
		var cfgErr *dynacodec.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestQueryResults(t *testing.T) {
	client := dynamock.NewMockClient(t)
	client.QueryFunc = func(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
		var items []map[string]types.AttributeValue
		for _, region := range []string{"eu", "us"} {
			item, err := dynacodec.MarshalItem(&Account{ID: "a1", Region: region, Version: 1})
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return &dynamodb.QueryOutput{Items: items, Count: int32(len(items))}, nil
	}

	input, err := dynacodec.NewTable("").MarshalQuery(&dynacodec.Query{Partition: &Account{ID: "a1"}})
	require.NoError(t, err)
	result, err := client.Query(context.Background(), input)
	require.NoError(t, err)

	var accounts []Account
	require.NoError(t, dynacodec.UnmarshalList(result.Items, &accounts))
	assert.Equal(t, []Account{
		{ID: "a1", Region: "eu", Version: 1},
		{ID: "a1", Region: "us", Version: 1},
	}, accounts)
}
