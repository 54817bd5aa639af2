// internal/nodeid/doc.go

/*
Package nodeid owns the identifiers of graph nodes that have no counterpart in
the step tree: the start/stop sentinels, the create-new placeholder, parallel
fan-out/fan-in nodes and step-group layer boundaries.

Every synthetic identifier starts with the reserved Separator token, which is
not expected to occur in user identifiers. Identifiers that refer to a tree
node embed that node's identifier between two separators, followed by a role
suffix:

	$node$<ref>$node$-start        parallel fan-out, ref = first branch
	$node$<ref>$node$-end          parallel fan-in, ref = first branch
	$node$<ref>$node$-group-start  step-group layer start, ref = group
	$node$<ref>$node$-group-end    step-group layer end, ref = group
	$node$<ref>$node$-create       create-new placeholder inside a group

Parse reverses the scheme so a drop on an edge touching a synthetic node can be
resolved back to a real anchor in the tree.
*/
package nodeid
