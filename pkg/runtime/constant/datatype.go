package constant

type DataType int8

const (
	BOOL DataType = iota
	FLOAT64
	STRING
)

var DataTypeToString = map[DataType]string{
	BOOL:    "bool",
	FLOAT64: "float64",
	STRING:  "string",
}

var StringToDataType = map[string]DataType{
	"bool":    BOOL,
	"float64": FLOAT64,
	"string":  STRING,
}
