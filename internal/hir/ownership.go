package hir

// Ownership is how a parameter is taken by its function.
type Ownership uint8

const (
	// OwnershipOwn takes the value by move.
	OwnershipOwn Ownership = iota
	// OwnershipRef takes a shared borrow.
	OwnershipRef
	// OwnershipRefMut takes an exclusive borrow.
	OwnershipRefMut
	// OwnershipCopy passes a copy-semantic value.
	OwnershipCopy
)

// String returns a human-readable representation of the ownership.
func (o Ownership) String() string {
	switch o {
	case OwnershipOwn:
		return "own"
	case OwnershipRef:
		return "&"
	case OwnershipRefMut:
		return "&mut"
	case OwnershipCopy:
		return "copy"
	default:
		return "?"
	}
}

// Use is the ownership decision for one occurrence of a value.
type Use uint8

const (
	// UseDefault leaves the occurrence as written.
	UseDefault Use = iota
	// UseMove consumes the binding.
	UseMove
	// UseCopy duplicates a copy-semantic value.
	UseCopy
	// UseBorrow passes `&x`.
	UseBorrow
	// UseBorrowMut passes `&mut x`.
	UseBorrowMut
	// UseClone passes `x.clone()`.
	UseClone
)

func (u Use) String() string {
	switch u {
	case UseDefault:
		return ""
	case UseMove:
		return "move"
	case UseCopy:
		return "copy"
	case UseBorrow:
		return "borrow"
	case UseBorrowMut:
		return "borrow-mut"
	case UseClone:
		return "clone"
	default:
		return "?"
	}
}
