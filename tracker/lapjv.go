package tracker

import (
	"fmt"
	"math"
)

// lapLarge bounds the costs accepted by the solver
const lapLarge = 1e6

// solveAssignment solves the rectangular linear assignment problem for the
// given rows x cols cost matrix.  Pairs costing more than costLimit are never
// chosen, leaving both sides unassigned instead.  Returns rowsol[i] as the
// column assigned to row i and colsol[j] as the row assigned to column j, or
// -1 when unassigned
func solveAssignment(cost [][]float64, costLimit float64) (rowsol, colsol []int, err error) {

	nRows := len(cost)

	if nRows == 0 {
		return nil, nil, nil
	}

	nCols := len(cost[0])

	rowsol = make([]int, nRows)
	colsol = make([]int, nCols)

	if nCols == 0 {
		for i := range rowsol {
			rowsol[i] = -1
		}
		return rowsol, colsol, nil
	}

	// extend to a square (rows+cols) matrix where a real row paired with a
	// dummy column, or a dummy row with a real column, costs half the limit
	// so leaving a pair unmatched costs exactly costLimit
	n := nRows + nCols
	ext := make([][]float64, n)

	for i := range ext {
		ext[i] = make([]float64, n)

		for j := range ext[i] {
			switch {
			case i < nRows && j < nCols:
				if cost[i][j] >= lapLarge {
					return nil, nil, fmt.Errorf("cost[%d][%d]=%v exceeds solver limit", i, j, cost[i][j])
				}
				ext[i][j] = cost[i][j]
			case i >= nRows && j >= nCols:
				ext[i][j] = 0
			default:
				ext[i][j] = costLimit / 2
			}
		}
	}

	x := make([]int, n)
	y := make([]int, n)

	lapjv(n, ext, x, y)

	for i := 0; i < nRows; i++ {
		rowsol[i] = x[i]
		if rowsol[i] >= nCols {
			rowsol[i] = -1
		}
	}

	for j := 0; j < nCols; j++ {
		colsol[j] = y[j]
		if colsol[j] >= nRows {
			colsol[j] = -1
		}
	}

	return rowsol, colsol, nil
}

// lapjv solves the dense square assignment problem using the Jonker-Volgenant
// shortest augmenting path method with row and column potentials.  Each row
// is added in turn and the matching is augmented along the cheapest
// alternating path found by a Dijkstra style search over reduced costs.  On
// return x[i] is the column for row i and y[j] the row for column j
func lapjv(n int, cost [][]float64, x, y []int) {

	inf := math.Inf(1)

	// index 0 is a virtual column holding the row being inserted, rows and
	// columns are stored one based
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	match := make([]int, n+1)
	prev := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {

		match[0] = i
		j0 := 0

		for j := range minv {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := match[j0]
			delta := inf
			j1 := 0

			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}

				reduced := cost[i0-1][j-1] - u[i0] - v[j]

				if reduced < minv[j] {
					minv[j] = reduced
					prev[j] = j0
				}

				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			for j := 0; j <= n; j++ {
				if used[j] {
					u[match[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1

			if match[j0] == 0 {
				break
			}
		}

		// flip the alternating path back to the virtual column
		for j0 != 0 {
			j1 := prev[j0]
			match[j0] = match[j1]
			j0 = j1
		}
	}

	for j := 1; j <= n; j++ {
		x[match[j]-1] = j - 1
		y[j-1] = match[j] - 1
	}
}
