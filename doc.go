// Package dynacodec maps Go types to DynamoDB items over the AWS SDK for Go v2.
//
// A [Store] resolves the schema of each mapped type once, from struct tags,
// marker fields or registered configuration, and caches the converters that
// move values between Go and the DynamoDB attribute value model. The same
// converters stream values to and from the DynamoDB JSON wire form without
// building intermediate attribute values.
//
// # Mapping Types
//
//	type Order struct {
//	    _       dynacodec.TableName `ddb:"orders"`
//	    ID      string              `ddb:"pk,pk"`
//	    Kind    string              `ddb:"sk,sk"`
//	    Rev     int64               `ddb:"rev,version"`
//	    Total   float64             `ddb:"total"`
//	    Labels  []string            `ddb:"labels,set,omitempty"`
//	    Placed  time.Time           `ddb:"placed,unixtime"`
//	}
//
// Tag options are pk, sk, version, omitempty and a converter name such as set,
// unixtime or text. A tag of "-" ignores the member. Embedding [AutoMap] maps
// every exported member under its own name.
//
// # Converting Values
//
//	item, err := dynacodec.MarshalItem(&order)
//	err = dynacodec.UnmarshalItem(item, &order)
//
//	w := dynacodec.NewWriter(os.Stdout)
//	err = dynacodec.WriteItem(w, &order)
//
// # Tables
//
// [Table] builds request inputs from mapped values, including optimistic
// locking conditions for version members:
//
//	table := dynacodec.NewTable("")
//	putInput, err := table.MarshalPut(&order)
//	_, err = ddb.PutItem(ctx, putInput)
//
// # Pagination
//
// A [Paginator] turns the last evaluated key of a page into an opaque cursor and
// back. [CursorPaginator] encodes the key itself; [TablePaginator] stores it in
// the table and hands out a random reference.
//
//	cursor, err := dynacodec.MarshalStartKey(ctx, paginator, out.LastEvaluatedKey)
//	startKey, err := dynacodec.UnmarshalStartKey(ctx, paginator, cursor)
package dynacodec
