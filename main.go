// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/mkrun/mk/cmd/mk"

func main() {
	cmd.Execute()
}
