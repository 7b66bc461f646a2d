/***************************************************************
 *
 * Copyright (C) 2025, LabCAS Project, California Institute of Technology
 *
 * Licensed under the Apache License, Version 2.0 (the "License"); you
 * may not use this file except in compliance with the License.  You may
 * obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 ***************************************************************/

package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "labcas",
		Short: "LabCAS data-access backend",
		Long: `The labcas server exposes the LabCAS data-access REST API:
credential verification against the project directory, ownership-filtered
metadata queries, and archive file delivery.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				return os.Setenv("LABCAS_CONFIG_FILE", cfgFile)
			}
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the data-access API server",
		RunE:  serve,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file to use")
	serveCmd.Flags().Int("port", 8080, "port to listen on")
	if err := viper.BindPFlag("Server.Port", serveCmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Errorln(err)
		os.Exit(1)
	}
}
