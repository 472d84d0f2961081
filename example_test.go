package dynacodec_test

import (
	"fmt"
	"strings"

	"github.com/nisimpson/dynacodec"
)

type Order struct {
	_      dynacodec.TableName `ddb:"orders"`
	ID     string              `ddb:"pk,pk"`
	Kind   string              `ddb:"sk,sk"`
	Rev    int                 `ddb:"rev,version"`
	Total  float64             `ddb:"total"`
	Labels []string            `ddb:"labels,set,omitempty"`
}

func ExampleWriteItem() {
	w := dynacodec.NewWriter(nil)
	order := Order{ID: "order#1", Kind: "order", Total: 12.5, Labels: []string{"gift"}}
	if err := dynacodec.WriteItem(w, order); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(w.Bytes()))
	// Output: {"pk":{"S":"order#1"},"sk":{"S":"order"},"rev":{"N":"0"},"total":{"N":"12.5"},"labels":{"SS":["gift"]}}
}

func ExampleTable_MarshalPut() {
	table := dynacodec.NewTable("")
	input, err := table.MarshalPut(&Order{ID: "order#1", Kind: "order", Rev: 4})
	if err != nil {
		fmt.Println(err)
		return
	}
	item, _ := dynacodec.EncodeItemJSON(input.Item)
	fmt.Println(*input.TableName)
	fmt.Println(string(item))
	fmt.Println(input.ExpressionAttributeNames["#0"])
	// Output:
	// orders
	// {"pk":{"S":"order#1"},"rev":{"N":"5"},"sk":{"S":"order"},"total":{"N":"0"}}
	// rev
}

func ExampleDecodePage() {
	body := `{"Count":2,"Items":[
		{"pk":{"S":"order#1"},"sk":{"S":"order"},"total":{"N":"3"}},
		{"pk":{"S":"order#2"},"sk":{"S":"order"},"total":{"N":"4.25"}}
	]}`
	page, err := dynacodec.DecodePage[Order](strings.NewReader(body))
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, order := range page.Items {
		fmt.Println(order.ID, order.Total)
	}
	fmt.Println("count:", page.Count)
	// Output:
	// order#1 3
	// order#2 4.25
	// count: 2
}

func ExampleSchemaOf() {
	d, err := dynacodec.SchemaOf[Order]()
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(d.TableName(), d.Category())
	for _, p := range d.Properties() {
		fmt.Println(p.Name(), p.Role(), p.IsVersion())
	}
	// Output:
	// orders Object
	// pk PartitionKey false
	// sk SortKey false
	// rev Plain true
	// total Plain false
	// labels Plain false
}
