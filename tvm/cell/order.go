package cell

type idxItem struct {
	index uint64
	cell  *Cell
}

// orderCells numbers unique cells of the trees in topological order:
// every cell goes before the cells it refers to, the first root gets 0.
func orderCells(roots []*Cell) ([]*idxItem, map[string]*idxItem) {
	const (
		unseen = iota
		open
		done
	)

	type frame struct {
		c    *Cell
		next int
	}

	state := map[string]int{}
	post := make([]*Cell, 0, len(roots))

	for i := len(roots) - 1; i >= 0; i-- {
		root := roots[i]
		if state[string(root.getHash(maxLevel))] != unseen {
			continue
		}

		state[string(root.getHash(maxLevel))] = open
		stack := []frame{{c: root}}
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.c.refs) {
				ref := top.c.refs[top.next]
				top.next++

				h := string(ref.getHash(maxLevel))
				if state[h] == unseen {
					state[h] = open
					stack = append(stack, frame{c: ref})
				}
				continue
			}

			state[string(top.c.getHash(maxLevel))] = done
			post = append(post, top.c)
			stack = stack[:len(stack)-1]
		}
	}

	// roots are visited backwards, the reversed order starts with the first one
	items := make([]*idxItem, len(post))
	index := make(map[string]*idxItem, len(post))
	for i := range post {
		c := post[len(post)-1-i]
		items[i] = &idxItem{index: uint64(i), cell: c}
		index[string(c.getHash(maxLevel))] = items[i]
	}
	return items, index
}
