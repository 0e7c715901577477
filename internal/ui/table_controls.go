package ui

// tableController is the column, sort and filter surface shared by list tables.
type tableController interface {
	NextColumn()
	PrevColumn()
	JumpToColumn(number int) bool
	SortActiveColumn(desc bool)
	HideActiveColumn() bool
	ShowAllColumns()
	FilterBySelectedValue() bool
	ClearFilter() bool
	TableMeta() string
}

var _ tableController = (*ReviewsModel)(nil)
