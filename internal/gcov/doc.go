// Package gcov turns instrumented builds into coverage data.
//
// Generator runs gcov over the sources of a built tree, ParseFile and
// ParseDir read the resulting .gcov listings, and Lcov drives lcov and
// genhtml when they are installed.
//
// A .gcov listing has one "count:line:source" record per source line:
//
//	        -:    0:Source:main.c
//	        5:   12:    total += i;
//	    #####:   14:    return -1;
//	        -:   15:}
//
// Only executable lines (counts other than "-") enter the totals.
package gcov
