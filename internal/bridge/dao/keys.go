package dao

import "fmt"

func DepositListKey(owner string) string {
	return fmt.Sprintf("bridge:deposits:v2:%s", owner)
}
