// Package toolchain runs the external programs a coverage run depends on:
// git, the C/C++ compilers, make, cmake, gcov, lcov and genhtml.
//
// Everything goes through the Runner interface so the pipeline can be
// tested without a compiler installed. ExecRunner is the real
// implementation; FakeRunner scripts responses for tests.
package toolchain
