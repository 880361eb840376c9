package domain

type Item struct {
	ID          int64
	Name        string
	Description string
	Price       int64 // minor currency units
}
