package entity

type User struct {
	ID    string
	Name  string
	Email string
	Phone string
}
