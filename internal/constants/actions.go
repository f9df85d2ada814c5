package constants

const (
	Create   = "create"
	Update   = "update"
	Delete   = "delete"
	AddBooks = "add_books"
)
