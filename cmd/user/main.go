// ユーザープロフィールサービスのエントリポイント。
// 認証識別子にリンクされたプロフィールの作成・参照・削除を担当する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/accounthub/internal/user"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server, err := user.NewServer(port)
	if err != nil {
		log.Fatalf("Userサーバーの初期化に失敗: %v", err)
	}

	log.Printf("Userサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("Userサービスの起動に失敗: %v", err)
	}
}
