// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/sandboxctx/sandboxctx/cmd/sandboxctx"

func main() {
	cmd.Execute()
}
