package assist

import "github.com/nao1215/covgen/internal/model"

// FallbackExplanation explains a plan built without the model.
const FallbackExplanation = "Basic Gcov compatibility modifications"

// FallbackPlan returns built-in modifications for the detected build
// system. It is used when the assistant is disabled or Bedrock fails.
func FallbackPlan(a *model.RepoAnalysis) *model.ModificationPlan {
	plan := model.NewEmptyPlan(FallbackExplanation)
	plan.Modifications.GcovCommands = []string{"gcov *.gcda", "gcov *.c *.cpp"}

	if a.HasMakefile || a.BuildSystem == model.BuildSystemSimple {
		plan.Modifications.MakefileChanges = []string{
			"CFLAGS += -fprofile-arcs -ftest-coverage -g -O0",
			"CXXFLAGS += -fprofile-arcs -ftest-coverage -g -O0",
			"LDFLAGS += -lgcov",
			"",
			"coverage:",
			"\t@echo 'Generating coverage report...'",
			"\tgcov *.gcda",
			"\tlcov --capture --directory . --output-file coverage.info",
			"\tgenhtml coverage.info --output-directory coverage_html",
		}
	}

	if a.HasCMake {
		plan.Modifications.CMakeChanges = []string{
			"# Add coverage flags",
			`set(CMAKE_CXX_FLAGS "${CMAKE_CXX_FLAGS} -fprofile-arcs -ftest-coverage")`,
			`set(CMAKE_C_FLAGS "${CMAKE_C_FLAGS} -fprofile-arcs -ftest-coverage")`,
			"target_link_libraries(${TARGET_NAME} gcov)",
		}
	}

	return plan
}
