package main

import (
	"errors"
	"strconv"

	"github.com/abiosoft/ishell"
)

const shellPrompt = "spimem> "

// newShell creates an interactive shell running app commands.
func newShell(a *app) *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt(shellPrompt)
	for _, cmd := range shellCmds(a) {
		sh.AddCmd(cmd)
	}

	return sh
}

func shellCmds(a *app) []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name: "status",
			Help: "read and clear the peer status",
			Func: func(c *ishell.Context) {
				report(c, a.status())
			},
		},
		{
			Name: "read",
			Help: "ADDR LEN [EXPECT_HEX]",
			Func: func(c *ishell.Context) {
				if len(c.Args) < 2 {
					c.Err(errors.New("ADDR and LEN required"))
					return
				}
				expect := ""
				if len(c.Args) > 2 {
					expect = c.Args[2]
				}
				report(c, a.read(c.Args[0], c.Args[1], expect))
			},
		},
		{
			Name: "write",
			Help: "ADDR HEX",
			Func: func(c *ishell.Context) {
				if len(c.Args) < 2 {
					c.Err(errors.New("ADDR and HEX required"))
					return
				}
				report(c, a.write(c.Args[0], c.Args[1]))
			},
		},
		{
			Name: "resync",
			Help: "[PEER_BUFFER_BYTES]",
			Func: func(c *ishell.Context) {
				n := 0
				if len(c.Args) > 0 {
					v, err := strconv.Atoi(c.Args[0])
					if err != nil {
						c.Err(err)
						return
					}
					n = v
				}
				report(c, a.resync(n))
			},
		},
		{
			Name: "unsync",
			Help: "desynchronize the peer parser",
			Func: func(c *ishell.Context) {
				report(c, a.unsync())
			},
		},
	}
}

func report(c *ishell.Context, err error) {
	if err != nil {
		c.Err(err)
	}
}
