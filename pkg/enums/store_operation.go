package enums

// StoreOperation names the Sale Store call that produced a reported error.
type StoreOperation string

const (
	StoreOperationCreate StoreOperation = "create"
	StoreOperationUpdate StoreOperation = "update"
	StoreOperationDelete StoreOperation = "delete"
	StoreOperationGet    StoreOperation = "get"
	StoreOperationList   StoreOperation = "list"
)

var validStoreOperations = []StoreOperation{
	StoreOperationCreate,
	StoreOperationUpdate,
	StoreOperationDelete,
	StoreOperationGet,
	StoreOperationList,
}

func (o StoreOperation) String() string {
	return string(o)
}

// IsValid reports whether the value is a known StoreOperation.
func (o StoreOperation) IsValid() bool {
	for _, candidate := range validStoreOperations {
		if candidate == o {
			return true
		}
	}
	return false
}
