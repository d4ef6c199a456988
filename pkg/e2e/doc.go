// Package e2e orchestrates browser end-to-end suites.
//
// A run:
//   - starts a static file server for the docs directory on a random port
//     while launching every installed stable Chrome, concurrently
//   - for each browser in turn, discovers the suites under the elements
//     directory and runs them against that browser and the server address
//   - kills every browser and closes the server, whatever happened
//
// Layout expected on disk:
//
//	docs/                          served as static content
//	elements/<unit>/<unit>.e2etest.yaml
//
// A unit takes part when any of its files has ".e2etest." in its name.
// The first failing browser stops the run.
package e2e
