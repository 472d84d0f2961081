package dynacodec

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

// Item is an alias for the dynamodb attribute value map. It is the shape of a
// top-level document: wire attribute names to wire values.
type Item = map[string]types.AttributeValue

// DataType is the wire tag identifying which variant of an attribute value is set.
type DataType string

const (
	DataTypeString    DataType = "S"
	DataTypeNumber    DataType = "N"
	DataTypeBinary    DataType = "B"
	DataTypeBoolean   DataType = "BOOL"
	DataTypeNull      DataType = "NULL"
	DataTypeStringSet DataType = "SS"
	DataTypeNumberSet DataType = "NS"
	DataTypeBinarySet DataType = "BS"
	DataTypeMap       DataType = "M"
	DataTypeList      DataType = "L"
)

func (dt DataType) valid() bool {
	switch dt {
	case DataTypeString, DataTypeNumber, DataTypeBinary, DataTypeBoolean, DataTypeNull,
		DataTypeStringSet, DataTypeNumberSet, DataTypeBinarySet, DataTypeMap, DataTypeList:
		return true
	}
	return false
}

// TypeOf returns the wire tag of av. Unknown union members report an empty DataType.
func TypeOf(av types.AttributeValue) DataType {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return DataTypeString
	case *types.AttributeValueMemberN:
		return DataTypeNumber
	case *types.AttributeValueMemberB:
		return DataTypeBinary
	case *types.AttributeValueMemberBOOL:
		return DataTypeBoolean
	case *types.AttributeValueMemberNULL:
		return DataTypeNull
	case *types.AttributeValueMemberSS:
		return DataTypeStringSet
	case *types.AttributeValueMemberNS:
		return DataTypeNumberSet
	case *types.AttributeValueMemberBS:
		return DataTypeBinarySet
	case *types.AttributeValueMemberM:
		return DataTypeMap
	case *types.AttributeValueMemberL:
		return DataTypeList
	}
	return ""
}

// Null is the shared NULL attribute value.
var Null types.AttributeValue = &types.AttributeValueMemberNULL{Value: true}

// Number is decimal text stored as an N attribute without conversion to a native
// numeric type. Use it for values whose precision exceeds float64 or int64.
type Number string

// Valid reports whether n is canonical wire number text.
func (n Number) Valid() bool {
	return isCanonicalNumber(string(n))
}

func (n Number) String() string { return string(n) }

// isCanonicalNumber reports whether s matches -?[0-9]+(\.[0-9]+)?
func isCanonicalNumber(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	start := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == start {
		return false
	}
	if i == len(s) {
		return true
	}
	if s[i] != '.' {
		return false
	}
	i++
	start = i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return i > start && i == len(s)
}

// isIntegerText reports whether s matches -?[0-9]+
func isIntegerText(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	if i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// isDecimalText accepts canonical numbers with an optional exponent, which the
// service may return for values written by other clients.
func isDecimalText(s string) bool {
	exp := len(s)
	for i := 0; i < len(s); i++ {
		if s[i] == 'e' || s[i] == 'E' {
			exp = i
			break
		}
	}
	if !isCanonicalNumber(s[:exp]) {
		return false
	}
	if exp == len(s) {
		return true
	}
	rest := s[exp+1:]
	if len(rest) > 0 && (rest[0] == '+' || rest[0] == '-') {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if !isDigit(rest[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
