package ssa

// LayoutBlocks computes a reverse-postorder block layout for fn, the order
// block-by-block passes such as DSE visit blocks in (the backend instead
// follows terminators from the entry block). Unreachable blocks are
// omitted, mirroring the source's dead-block pruning during IR
// finalization.
func LayoutBlocks(fn *Function) {
	n := fn.NumBlocks()
	visited := make([]bool, n)
	var postorder []BlockID

	var visit func(id BlockID)
	visit = func(id BlockID) {
		if int(id) >= len(visited) || visited[id] {
			return
		}
		visited[id] = true
		for _, s := range fn.Block(id).Succs {
			visit(s)
		}
		postorder = append(postorder, id)
	}
	visit(EntryBlock)

	order := make([]BlockID, len(postorder))
	for i, id := range postorder {
		order[len(postorder)-1-i] = id
	}
	fn.blockOrder = order
}

// IsLoopHeader reports whether block id has a back edge into it from a
// block later in fn's computed layout order — i.e. id dominates a
// predecessor that follows it.
func IsLoopHeader(fn *Function, id BlockID) bool {
	pos := make(map[BlockID]int, len(fn.blockOrder))
	for i, b := range fn.blockOrder {
		pos[b] = i
	}
	idPos, ok := pos[id]
	if !ok {
		return false
	}
	for _, p := range fn.Block(id).Preds {
		if pp, ok := pos[p]; ok && pp >= idPos {
			return true
		}
	}
	return false
}
