package geom

// findSpan returns the knot span index i such that knots[i] <= t <
// knots[i+1], with t at the upper end of the domain mapped to the last
// non-empty span. n is the number of control points.
func findSpan(n, p int, t float64, knots []float64) int {
	if t >= knots[n] {
		i := n - 1
		for i > p && knots[i] == knots[i+1] {
			i--
		}
		return i
	}
	if t <= knots[p] {
		i := p
		for i < n-1 && knots[i] == knots[i+1] {
			i++
		}
		return i
	}
	lo, hi := p, n
	mid := (lo + hi) / 2
	for t < knots[mid] || t >= knots[mid+1] {
		if t < knots[mid] {
			hi = mid
		} else {
			lo = mid
		}
		mid = (lo + hi) / 2
	}
	return mid
}

// basisDerivs computes the non-zero basis functions of degree p at t and
// their first derivatives. ders[0][j] is N_{span-p+j,p}(t), ders[1][j] its
// derivative.
func basisDerivs(span, p int, t float64, knots []float64) [2][]float64 {
	left := make([]float64, p+1)
	right := make([]float64, p+1)
	ndu := make([][]float64, p+1)
	for i := range ndu {
		ndu[i] = make([]float64, p+1)
	}
	ndu[0][0] = 1
	for j := 1; j <= p; j++ {
		left[j] = t - knots[span+1-j]
		right[j] = knots[span+j] - t
		saved := 0.0
		for r := 0; r < j; r++ {
			// lower triangle holds knot differences
			ndu[j][r] = right[r+1] + left[j-r]
			tmp := 0.0
			if ndu[j][r] != 0 {
				tmp = ndu[r][j-1] / ndu[j][r]
			}
			ndu[r][j] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		ndu[j][j] = saved
	}

	var ders [2][]float64
	ders[0] = make([]float64, p+1)
	ders[1] = make([]float64, p+1)
	for j := 0; j <= p; j++ {
		ders[0][j] = ndu[j][p]
	}
	if p == 0 {
		return ders
	}
	for r := 0; r <= p; r++ {
		d := 0.0
		if r >= 1 && ndu[p][r-1] != 0 {
			d += ndu[r-1][p-1] / ndu[p][r-1]
		}
		if r <= p-1 && ndu[p][r] != 0 {
			d -= ndu[r][p-1] / ndu[p][r]
		}
		ders[1][r] = float64(p) * d
	}
	return ders
}

// evalNURBSCurve returns the position and first derivative of a rational
// B-spline curve.
func evalNURBSCurve(c BSplineCurve, t float64) (Vec3, Vec3) {
	p := c.Degree
	span := findSpan(len(c.Ctrl), p, t, c.Knots)
	n := basisDerivs(span, p, t, c.Knots)

	var a, da Vec3
	var w, dw float64
	for j := 0; j <= p; j++ {
		k := span - p + j
		wk := c.Weights[k]
		pw := c.Ctrl[k].MulScalar(wk)
		a = a.Add(pw.MulScalar(n[0][j]))
		da = da.Add(pw.MulScalar(n[1][j]))
		w += n[0][j] * wk
		dw += n[1][j] * wk
	}
	pos := a.MulScalar(1 / w)
	return pos, da.Sub(pos.MulScalar(dw)).MulScalar(1 / w)
}

// evalNURBSSurface returns the position and partial derivatives of a
// rational tensor-product surface.
func evalNURBSSurface(s BSplineSurface, u, v float64) (Vec3, Vec3, Vec3) {
	pu, pv := s.DegreeU, s.DegreeV
	su := findSpan(s.NU, pu, u, s.KnotsU)
	sv := findSpan(s.NV, pv, v, s.KnotsV)
	nu := basisDerivs(su, pu, u, s.KnotsU)
	nv := basisDerivs(sv, pv, v, s.KnotsV)

	var a, au, av Vec3
	var w, wu, wv float64
	for i := 0; i <= pu; i++ {
		ri := su - pu + i
		for j := 0; j <= pv; j++ {
			k := ri*s.NV + sv - pv + j
			wk := s.Weights[k]
			pw := s.Ctrl[k].MulScalar(wk)
			b := nu[0][i] * nv[0][j]
			bu := nu[1][i] * nv[0][j]
			bv := nu[0][i] * nv[1][j]
			a = a.Add(pw.MulScalar(b))
			au = au.Add(pw.MulScalar(bu))
			av = av.Add(pw.MulScalar(bv))
			w += b * wk
			wu += bu * wk
			wv += bv * wk
		}
	}
	pos := a.MulScalar(1 / w)
	du := au.Sub(pos.MulScalar(wu)).MulScalar(1 / w)
	dv := av.Sub(pos.MulScalar(wv)).MulScalar(1 / w)
	return pos, du, dv
}
