package algoverse

import "github.com/okian/visualverse/internal/domain/catalog"

var sampleGraph = GraphParams{
	Nodes: []string{"A", "B", "C", "D", "E"},
	Edges: []EdgeInput{
		{From: "A", To: "B", Weight: 4},
		{From: "A", To: "C", Weight: 1},
		{From: "C", To: "B", Weight: 2},
		{From: "B", To: "D", Weight: 1},
		{From: "C", To: "D", Weight: 5},
		{From: "D", To: "E", Weight: 3},
	},
	Directed: true,
	Source:   "A",
}

// Catalog lists the algorithm concepts.
func Catalog() []catalog.Entry {
	sortEx := catalog.Example(SortParams{Data: []int{5, 2, 9, 1, 5, 6}})
	searchEx := catalog.Example(SearchParams{Data: []int{1, 3, 5, 7, 9, 11, 13}, Target: 9})
	graphEx := catalog.Example(sampleGraph)
	entry := func(kind, title, summary string, lvl catalog.Level, ex []byte, tags ...string) catalog.Entry {
		return catalog.Entry{
			Domain: catalog.DomainAlgorithms, Kind: kind, Title: title, Summary: summary,
			Level: lvl, Tags: tags, Example: ex,
		}
	}
	return []catalog.Entry{
		entry("bubble_sort", "Bubble sort", "Adjacent swaps push the largest element to the end on every pass.", catalog.Beginner, sortEx, "sorting", "comparison"),
		entry("selection_sort", "Selection sort", "Select the minimum of the unsorted suffix and swap it into place.", catalog.Beginner, sortEx, "sorting", "comparison"),
		entry("insertion_sort", "Insertion sort", "Grow a sorted prefix by shifting each element left.", catalog.Beginner, sortEx, "sorting", "stable"),
		entry("merge_sort", "Merge sort", "Divide and conquer: sort halves, then merge.", catalog.Intermediate, sortEx, "sorting", "divide-and-conquer", "stable"),
		entry("quick_sort", "Quick sort", "Partition around a pivot and recurse on both sides.", catalog.Intermediate, sortEx, "sorting", "divide-and-conquer"),
		entry("heap_sort", "Heap sort", "Build a max-heap and repeatedly extract the root.", catalog.Advanced, sortEx, "sorting", "heap"),
		entry("linear_search", "Linear search", "Check every element in order.", catalog.Beginner, searchEx, "searching"),
		entry("binary_search", "Binary search", "Halve a sorted range on every comparison.", catalog.Beginner, searchEx, "searching", "logarithmic"),
		entry("bfs", "Breadth-first search", "Explore a graph level by level with a queue.", catalog.Intermediate, graphEx, "graphs", "traversal"),
		entry("dfs", "Depth-first search", "Explore a graph branch by branch with a stack.", catalog.Intermediate, graphEx, "graphs", "traversal"),
		entry("dijkstra", "Dijkstra's algorithm", "Shortest paths with non-negative weights using a priority queue.", catalog.Advanced, graphEx, "graphs", "shortest-path"),
		entry("bellman_ford", "Bellman-Ford", "Shortest paths with negative weights and cycle detection.", catalog.Advanced, graphEx, "graphs", "shortest-path"),
		entry("tree_traversal", "Binary tree traversal", "Build a BST and walk it inorder, preorder, postorder or by level.", catalog.Intermediate,
			catalog.Example(TreeParams{Values: []int{8, 3, 10, 1, 6, 14, 4, 7, 13}, Order: OrderIn}), "trees", "traversal"),
	}
}
