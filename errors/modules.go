/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package errors

// Each mcperf package reserves a block of 100 error codes so that a bare
// CodeError printed in a log line is enough to identify which component
// raised it, mirroring the teacher's per-package MinPkg* constants.
const (
	MinPkgConfig       = 100
	MinPkgLogger       = 200
	MinPkgTimer        = 300
	MinPkgDistribution = 400
	MinPkgEvent        = 500
	MinPkgPool         = 600
	MinPkgPoller       = 700
	MinPkgGenerator    = 800
	MinPkgProtocol     = 900
	MinPkgConn         = 1000
	MinPkgStats        = 1100
	MinPkgEngine       = 1200
	MinPkgReport       = 1300
	MinPkgCmd          = 1400

	MinAvailable = 2000
)
