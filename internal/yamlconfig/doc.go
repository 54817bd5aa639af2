// Package yamlconfig loads and writes pipelines in their YAML and JSON wire
// formats. Both formats share one document shape:
//
//	name: deploy
//	services:
//	  - identifier: db
//	    name: Postgres
//	steps:
//	  - step: {identifier: build, name: Build, type: ShellScript}
//	  - parallel:
//	      - step: {identifier: lint, name: Lint}
//	      - step: {identifier: test, name: Test}
//	rollbackSteps:
//	  - step: {identifier: cleanup, name: Cleanup}
package yamlconfig
