package ecs

// Each2 walks the batch row by row with pointers into slots a and b. A slot
// without data in this batch passes nil.
func Each2[A, B any](c *Cursor, a, b int, fn func(Entity, *A, *B)) error {
	as, err := Column[A](c, a)
	if err != nil {
		return err
	}
	bs, err := Column[B](c, b)
	if err != nil {
		return err
	}
	for i, e := range c.Entities() {
		fn(e, at(as, i), at(bs, i))
	}
	return nil
}

// Each3 walks the batch row by row with pointers into slots a, b and c.
func Each3[A, B, C any](cur *Cursor, a, b, c int, fn func(Entity, *A, *B, *C)) error {
	as, err := Column[A](cur, a)
	if err != nil {
		return err
	}
	bs, err := Column[B](cur, b)
	if err != nil {
		return err
	}
	cs, err := Column[C](cur, c)
	if err != nil {
		return err
	}
	for i, e := range cur.Entities() {
		fn(e, at(as, i), at(bs, i), at(cs, i))
	}
	return nil
}

func at[T any](s []T, i int) *T {
	if i < len(s) {
		return &s[i]
	}
	return nil
}
