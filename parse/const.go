// Copyright (c) 2024 Michael D Henderson. All rights reserved.

package parse

import "math"

var (
	posInf = math.Inf(1)
	negInf = math.Inf(-1)
	nanVal = math.NaN()
)
