// Package hcl provides the HCL implementation of config.Loader.
//
// A pipeline file is a sequence of blocks whose order is the pipeline order:
//
//	name = "deploy"
//
//	locals {
//	  region = "eu-west-1"
//	}
//
//	step "build" {
//	  type = "Run"
//	  spec = { command = "make", region = local.region }
//	}
//
//	parallel {
//	  step "lint" {}
//	  step "test" {}
//	}
//
//	step_group "release" {
//	  step "push" {}
//	  rollback {
//	    step "revert" {}
//	  }
//	}
//
//	service "db" {
//	  type = "postgres"
//	}
//
// A step's spec is evaluated to a cty value and kept as JSON.
package hcl
