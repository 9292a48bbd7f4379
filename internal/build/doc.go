// Package build compiles a checked-out C/C++ repository with Gcov
// instrumentation and runs the resulting programs so that .gcda files are
// produced.
//
// Three build paths exist, tried in the order the repository allows:
//
//   - make: "make clean", the plan's test compilation command, then
//     mingw32-make and make. If all of them fail, direct compilation.
//   - cmake: configure a build/ directory with coverage flags and build it.
//   - direct: every C file is compiled with gcc and every C++ file with g++
//     into its own executable.
//
// All external programs run through toolchain.Runner so tests can fake them.
package build
